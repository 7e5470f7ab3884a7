package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"earntracker/internal/core"
)

type incomeRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Description  string          `json:"description"`
	Date         core.Date       `json:"date"`
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	list, err := s.incomes.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleIncomesByPeriod(w http.ResponseWriter, r *http.Request) {
	q, err := requireQuery(r, "start", "end")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.incomes.ListByPeriod(r.Context(), userIDFrom(r.Context()), q[0], q[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.incomes.Create(r.Context(), core.IncomeEntry{
		UserID:       userIDFrom(r.Context()),
		Amount:       req.Amount,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
		Description:  sanitizeInput(req.Description),
		Date:         req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p core.IncomePatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizePtr(p.Description)

	updated, err := s.incomes.Update(r.Context(), userIDFrom(r.Context()), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.incomes.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
