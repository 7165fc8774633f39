package http

import (
	"net/http"

	"lifeledger/internal/core"
)

func (s *Server) handleViewState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) handleSetViewMonth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month string `json:"month"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	state, ok := s.svc.SetViewMonth(month)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "month is neither active nor archived")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleViewPrevious(w http.ResponseWriter, r *http.Request) {
	state, ok := s.svc.ViewPreviousMonth()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "no archived month before the current view")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleViewNext(w http.ResponseWriter, r *http.Request) {
	state, ok := s.svc.ViewNextMonth()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "already viewing the active month")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	record, ok := s.svc.CloseMonth(r.Context())
	if !ok {
		writeError(w, http.StatusConflict, "month can only be closed from the active month view")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleRevertMonth(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.svc.RevertMonth(r.Context())
	if !ok {
		writeError(w, http.StatusConflict, "no revertible month close")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.svc.History()
	if history == nil {
		history = []core.BudgetHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}
