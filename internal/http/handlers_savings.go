package http

import (
	"io"
	"net/http"
	"strconv"
)

func (s *Server) handleGetSavings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Savings())
}

func (s *Server) handleManualSavings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be non-zero")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.AddManualSavings(r.Context(), req.Amount))
}

func (s *Server) handleSetSavingsBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance float64 `json:"balance"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.SetSavingsBalance(r.Context(), req.Balance))
}

func (s *Server) handleResetSavings(w http.ResponseWriter, r *http.Request) {
	s.svc.ResetSavings(r.Context())
	writeJSON(w, http.StatusOK, s.svc.Savings())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	priceStr := r.URL.Query().Get("price")
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "price must be a number")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.AnalyzePurchase(price))
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="lifeledger-backup.json"`)
	writeJSON(w, http.StatusOK, s.svc.ExportBackup())
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if err := s.svc.ImportBackup(r.Context(), data); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State())
}
