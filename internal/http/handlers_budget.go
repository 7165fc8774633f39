package http

import (
	"net/http"
	"strconv"
	"strings"

	"lifeledger/internal/core"
	"lifeledger/internal/ledger"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Summary())
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.IncomeConfig())
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var patch ledger.IncomeConfigPatch
	if !readJSON(w, r, &patch) {
		return
	}
	updated := s.svc.UpdateIncome(r.Context(), patch)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses := s.svc.Expenses()
	if expenses == nil {
		expenses = []core.ExpenseItem{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var item core.ExpenseItem
	if !readJSON(w, r, &item) {
		return
	}
	item.Name = strings.TrimSpace(item.Name)

	result, err := s.svc.AddExpense(r.Context(), item)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var changes ledger.ExpenseUpdate
	if !readJSON(w, r, &changes) {
		return
	}
	result, err := s.svc.UpdateExpense(r.Context(), r.PathValue("id"), changes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveExpense(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleIgnore(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.ToggleIgnore(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleResetExpenses(w http.ResponseWriter, r *http.Request) {
	s.svc.ResetCurrentMonthItems(r.Context())
	writeJSON(w, http.StatusOK, s.svc.Expenses())
}

// handleCheckSavingChange previews the overdraft advisory for a signed
// delta without mutating anything.
func (s *Server) handleCheckSavingChange(w http.ResponseWriter, r *http.Request) {
	deltaStr := r.URL.Query().Get("delta")
	delta, err := strconv.ParseFloat(deltaStr, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "delta must be a number")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.CheckSavingChange(delta))
}
