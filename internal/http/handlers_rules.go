package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/storage"
)

type ruleRequest struct {
	Name    string          `json:"name"`
	Kind    core.RuleKind   `json:"kind"`
	Value   decimal.Decimal `json:"value"`
	Active  *bool           `json:"active"`
	Year    int             `json:"year"`
	Quarter int             `json:"quarter"`
}

type copyRequest struct {
	SourceYear    int `json:"source_year"`
	SourceQuarter int `json:"source_quarter"`
	TargetYear    int `json:"target_year"`
	TargetQuarter int `json:"target_quarter"`
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	var f storage.RuleFilter
	var err error
	if f.Year, err = queryInt(r, "year"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Quarter, err = queryInt(r, "quarter"); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.rules.List(r.Context(), userIDFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	created, err := s.rules.Create(r.Context(), core.TaxRule{
		UserID:  userIDFrom(r.Context()),
		Name:    sanitizeInput(req.Name),
		Kind:    req.Kind,
		Value:   req.Value,
		Active:  active,
		Year:    req.Year,
		Quarter: req.Quarter,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p core.TaxRulePatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizePtr(p.Name)

	updated, err := s.rules.Update(r.Context(), userIDFrom(r.Context()), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.rules.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// handleCopyRules replaces the target quarter's rules with a copy of the
// source quarter's.
func (s *Server) handleCopyRules(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	source, err := period.New(req.SourceYear, req.SourceQuarter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	target, err := period.New(req.TargetYear, req.TargetQuarter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.taxes.CopyTaxRules(r.Context(), userIDFrom(r.Context()), source, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
