package http

import (
	"net/http"
)

func (s *Server) handleDedupeTransactions(w http.ResponseWriter, r *http.Request, ownerID string) {
	report, err := s.deduper.DedupeTransactions(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDedupeRecurrences(w http.ResponseWriter, r *http.Request, ownerID string) {
	report, err := s.deduper.DedupeRecurrences(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
