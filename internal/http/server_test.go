package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tesoreria/internal/core"
	"tesoreria/internal/services"
	"tesoreria/internal/storage/memory"
)

func newTestServer() *Server {
	store := memory.New()
	return NewServer(":0", NewHeaderAuthenticator(), Services{
		Recurrences: services.NewRecurrenceService(store, nil),
		Projector:   services.NewProjector(store, nil),
		Versioner:   services.NewVersioner(store, nil),
		Amortizer:   services.NewAmortizer(store, nil),
		Propagator:  services.NewPropagator(store, nil),
		Deduper:     services.NewDeduper(store, nil),
	})
}

func doJSON(t *testing.T, s *Server, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func createRecurrenceBody() map[string]any {
	return map[string]any{
		"company_id":   "acme",
		"type":         "expense",
		"name":         "Office rent",
		"amount":       "500.00",
		"category":     "rent",
		"frequency":    "monthly",
		"day_of_month": 15,
		"start_date":   "2025-01-15",
		"months_ahead": 3,
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	rec := doJSON(t, s, http.MethodGet, "/recurrences", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated request = %d, want 401", rec.Code)
	}
}

func TestCreateAndProjectRecurrence(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	rec := doJSON(t, s, http.MethodPost, "/recurrences", "owner-1", createRecurrenceBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created core.Recurrence
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created recurrence: %v", err)
	}
	if created.ID == 0 || created.Amount.Cents != 50000 {
		t.Fatalf("created = %+v, want assigned ID and 50000 cents", created)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/recurrences/%d/project", created.ID), "owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("project = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var res services.ProjectionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode projection result: %v", err)
	}
	if res.Generated < 1 {
		t.Errorf("generated = %d, want at least 1", res.Generated)
	}
}

func TestCreateRecurrenceRejectsBadInput(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   int
	}{
		{"bad amount", func(m map[string]any) { m["amount"] = "abc" }, http.StatusUnprocessableEntity},
		{"bad start date", func(m map[string]any) { m["start_date"] = "15/01/2025" }, http.StatusUnprocessableEntity},
		{"unknown frequency", func(m map[string]any) { m["frequency"] = "daily" }, http.StatusUnprocessableEntity},
		{"unknown body field", func(m map[string]any) { m["surprise"] = true }, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createRecurrenceBody()
			tt.mutate(body)
			rec := doJSON(t, s, http.MethodPost, "/recurrences", "owner-1", body)
			if rec.Code != tt.want {
				t.Errorf("create = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestForeignOwnerSeesNotFound(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	rec := doJSON(t, s, http.MethodPost, "/recurrences", "owner-1", createRecurrenceBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201", rec.Code)
	}
	var created core.Recurrence
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/recurrences/%d/project", created.ID), "intruder", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign project = %d, want 404", rec.Code)
	}
}

func TestAmendAndRevertFlow(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	rec := doJSON(t, s, http.MethodPost, "/recurrences", "owner-1", createRecurrenceBody())
	var created core.Recurrence
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/recurrences/%d/amendments", created.ID), "owner-1", map[string]any{
		"amount":         "600.00",
		"effective_from": "2025-03-01",
		"reason":         "indexation",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("amend = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/recurrences/%d/amendments", created.ID), "owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history = %d, want 200", rec.Code)
	}
	var history []core.RecurrenceVersion
	_ = json.Unmarshal(rec.Body.Bytes(), &history)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}

	// Reverting the closed version conflicts, reverting the newest works.
	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/recurrences/%d/amendments/1", created.ID), "owner-1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("revert old version = %d, want 409", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/recurrences/%d/amendments/2", created.ID), "owner-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revert newest = %d, want 204: %s", rec.Code, rec.Body.String())
	}
}

func TestPropagateRejectsUnknownFields(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	rec := doJSON(t, s, http.MethodPost, "/recurrences", "owner-1", createRecurrenceBody())
	var created core.Recurrence
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/recurrences/%d/propagate", created.ID), "owner-1", map[string]string{
		"amount": "999.99",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("propagate non-propagable field = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestLoanLifecycle(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	rec := doJSON(t, s, http.MethodPost, "/loans", "owner-1", map[string]any{
		"company_id":          "acme",
		"lender":              "Banco Uno",
		"principal":           "12000.00",
		"annual_rate_percent": 0,
		"total_installments":  12,
		"payment_day":         31,
		"first_pending_due":   "2025-01-31",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var loan core.Loan
	_ = json.Unmarshal(rec.Body.Bytes(), &loan)
	if loan.MonthlyPayment.Cents != 100000 {
		t.Fatalf("monthly payment = %d, want 100000", loan.MonthlyPayment.Cents)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/loans/%d/installments", loan.ID), "owner-1", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate installments = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	// Repeating the request must not emit a second schedule.
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/loans/%d/installments", loan.ID), "owner-1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeated generation = %d, want 409: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/loans/%d/payments", loan.ID), "owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register payment = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/loans/%d/summary", loan.ID), "owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d, want 200", rec.Code)
	}
	var summary services.LoanSummary
	_ = json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.RemainingCount != 11 {
		t.Errorf("remaining = %d, want 11 after one payment", summary.RemainingCount)
	}
}

func TestDedupeEndpoint(t *testing.T) {
	s := newTestServer()
	defer s.rateLimiter.stop()

	rec := doJSON(t, s, http.MethodPost, "/maintenance/dedupe/transactions", "owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dedupe = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var report services.DedupeReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Deleted != 0 {
		t.Errorf("deleted = %d on empty store, want 0", report.Deleted)
	}
}
