package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"earntracker/internal/core"
	"earntracker/internal/log"
	"earntracker/internal/rates"
)

type rateResponse struct {
	Currency string          `json:"currency"`
	Base     string          `json:"base,omitempty"`
	Date     core.Date       `json:"date"`
	Rate     decimal.Decimal `json:"rate"`
}

// handleQuarterTaxes computes taxes for ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (s *Server) handleQuarterTaxes(w http.ResponseWriter, r *http.Request) {
	q, err := requireQuery(r, "start", "end")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.taxes.ComputeQuarterTaxes(r.Context(), userIDFrom(r.Context()), q[0], q[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleYearReport(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.taxes.YearReport(r.Context(), userIDFrom(r.Context()), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.incomes.MonthlyTotals(r.Context(), userIDFrom(r.Context()), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, totals)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.taxes.Dashboard(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

// handleRate looks up ?currency=USD[&date=YYYY-MM-DD], defaulting to today.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	currency := core.NormalizeCurrency(r.URL.Query().Get("currency"))
	if !core.IsCurrencyCode(currency) {
		writeError(w, r, fmt.Errorf("%w: %q", core.ErrInvalidCurrency, currency))
		return
	}

	now := time.Now().UTC()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = d
	}

	rate, err := s.rates.Rate(r.Context(), currency, date)
	if err != nil {
		if errors.Is(err, rates.ErrRateUnavailable) {
			writeError(w, r, err)
			return
		}
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate lookup failed",
			log.FieldCurrency, currency, "error", err)
		writeJSON(w, r, http.StatusBadGateway, errorBody{Error: "exchange rate source unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, rateResponse{
		Currency: currency,
		Base:     s.baseCurrency,
		Date:     date,
		Rate:     rate,
	})
}
