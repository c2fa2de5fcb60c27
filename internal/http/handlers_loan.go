package http

import (
	"net/http"

	"tesoreria/internal/core"
)

type createLoanRequest struct {
	CompanyID             string  `json:"company_id"`
	Lender                string  `json:"lender"`
	Principal             string  `json:"principal"`
	AnnualRatePercent     float64 `json:"annual_rate_percent"`
	TotalInstallments     int     `json:"total_installments"`
	PaidInstallments      int     `json:"paid_installments"`
	RemainingInstallments int     `json:"remaining_installments"`
	PaymentDay            int     `json:"payment_day"`
	FirstPendingDue       string  `json:"first_pending_due"`
	ChargeAccountID       string  `json:"charge_account_id"`
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req createLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	principal, err := parseAmount(req.Principal)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid principal")
		return
	}
	firstDue, err := parseDay(req.FirstPendingDue)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid first pending due date, expected YYYY-MM-DD")
		return
	}

	loan, err := s.amortizer.CreateLoan(r.Context(), core.Loan{
		OwnerID:               ownerID,
		CompanyID:             req.CompanyID,
		Lender:                req.Lender,
		Principal:             principal,
		AnnualRatePercent:     req.AnnualRatePercent,
		TotalInstallments:     req.TotalInstallments,
		PaidInstallments:      req.PaidInstallments,
		RemainingInstallments: req.RemainingInstallments,
		PaymentDay:            req.PaymentDay,
		FirstPendingDue:       firstDue,
		ChargeAccountID:       req.ChargeAccountID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request, ownerID string) {
	loans, err := s.amortizer.List(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

type installmentsResponse struct {
	Generated int                `json:"generated"`
	Schedule  []core.Transaction `json:"schedule"`
}

func (s *Server) handleGenerateInstallments(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	txs, err := s.amortizer.GenerateInstallments(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, installmentsResponse{Generated: len(txs), Schedule: txs})
}

func (s *Server) handleLoanSummary(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	summary, err := s.amortizer.Summary(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRegisterPayment(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	loan, err := s.amortizer.RegisterPayment(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}
