package http

import (
	"net/http"
	"strconv"
	"time"

	"tesoreria/internal/core"
)

type createRecurrenceRequest struct {
	CompanyID      string `json:"company_id"`
	Type           string `json:"type"`
	Name           string `json:"name"`
	Amount         string `json:"amount"`
	Category       string `json:"category"`
	CounterpartyID string `json:"counterparty_id"`
	Frequency      string `json:"frequency"`
	DayOfMonth     int    `json:"day_of_month"`
	DayOfWeek      int    `json:"day_of_week"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	MonthsAhead    int    `json:"months_ahead"`

	PaymentMethod    string `json:"payment_method"`
	ChargeAccountID  string `json:"charge_account_id"`
	CounterpartyBank string `json:"counterparty_bank"`
	CounterpartyTax  string `json:"counterparty_tax_id"`
}

func (s *Server) handleCreateRecurrence(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req createRecurrenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	start, err := parseDay(req.StartDate)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := parseDay(req.EndDate)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid end date, expected YYYY-MM-DD")
		return
	}

	rec, err := s.recurrences.Create(r.Context(), core.Recurrence{
		OwnerID:          ownerID,
		CompanyID:        req.CompanyID,
		Type:             core.FlowType(req.Type),
		Name:             req.Name,
		Amount:           amount,
		Category:         req.Category,
		CounterpartyID:   req.CounterpartyID,
		Frequency:        core.Frequency(req.Frequency),
		DayOfMonth:       req.DayOfMonth,
		DayOfWeek:        time.Weekday(req.DayOfWeek),
		StartDate:        start,
		EndDate:          end,
		MonthsAhead:      req.MonthsAhead,
		PaymentMethod:    req.PaymentMethod,
		ChargeAccountID:  req.ChargeAccountID,
		CounterpartyBank: req.CounterpartyBank,
		CounterpartyTax:  req.CounterpartyTax,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListRecurrences(w http.ResponseWriter, r *http.Request, ownerID string) {
	recs, err := s.recurrences.List(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleEndRecurrence(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.recurrences.End(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteRecurrence(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.recurrences.Delete(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.projector.Project(r.Context(), ownerID, id, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type amendRequest struct {
	Amount        string `json:"amount"`
	EffectiveFrom string `json:"effective_from"`
	Reason        string `json:"reason"`
}

func (s *Server) handleAmend(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req amendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	from, err := parseDay(req.EffectiveFrom)
	if err != nil || from.IsZero() {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid effective-from date, expected YYYY-MM-DD")
		return
	}
	version, err := s.versioner.Amend(r.Context(), ownerID, id, amount, from, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func (s *Server) handleListAmendments(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	history, err := s.versioner.History(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		writeError(w, r, http.StatusBadRequest, "invalid version in path")
		return
	}
	if err := s.versioner.Revert(r.Context(), ownerID, id, version); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type propagateResponse struct {
	Updated int `json:"updated"`
}

func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch map[string]string
	if !decodeJSON(w, r, &patch) {
		return
	}
	updated, err := s.propagator.Propagate(r.Context(), ownerID, id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, propagateResponse{Updated: updated})
}
