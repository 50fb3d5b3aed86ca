package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/analysis"
	"github.com/xraph/auditledger/query"
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
)

// PersistenceWarningHeader is set when a mutation succeeded in memory but
// could not be written to the store.
const PersistenceWarningHeader = "X-Persistence-Warning"

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) services(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Catalog().All())
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	t, err := service.ParseType(r.URL.Query().Get("service"))
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", auditledger.ErrInvalidInput, err))
		return
	}
	q, err := s.ledger.Quote(t, r.URL.Query().Get("referral"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// analyze proxies one analysis request to the configured provider.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		writeError(w, http.StatusNotFound, "analysis proxy disabled")
		return
	}

	var req analysis.Request
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}
	def, err := s.ledger.Catalog().Lookup(req.ServiceType)
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", auditledger.ErrInvalidInput, err))
		return
	}

	res, err := s.analyst.Analyze(r.Context(), req)
	if err == nil {
		_, err = analysis.ValidateResult(def.Category, res)
	}
	if err != nil {
		s.logger.Warn("analysis proxy failed", "service_type", req.ServiceType, "error", err)
		s.fail(w, fmt.Errorf("%w: %w", auditledger.ErrAnalysisUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ──────────────────────────────────────────────────
// Reports
// ──────────────────────────────────────────────────

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var sub auditledger.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		s.fail(w, err)
		return
	}

	rep, err := s.ledger.Submit(r.Context(), sub)
	if err != nil && !(rep != nil && errors.Is(err, auditledger.ErrPersistenceFailed)) {
		s.fail(w, err)
		return
	}
	if err != nil {
		w.Header().Set(PersistenceWarningHeader, err.Error())
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) searchReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, query.Search(s.ledger.Records(r.Context()), r.URL.Query().Get("q")))
}

func (s *Server) latestReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, query.Latest(s.ledger.Records(r.Context()), limit))
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.visibleReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) reportChildren(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.visibleReport(w, r)
	if !ok {
		return
	}
	who, _ := auditledger.IdentityFrom(r.Context())
	var out []*report.ServiceReport
	for _, c := range query.Children(s.ledger.Records(r.Context()), rep.ID) {
		if query.CanView(c, who.Address, who.IsAdmin) {
			out = append(out, c)
		}
	}
	if out == nil {
		out = []*report.ServiceReport{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.visibleReport(w, r)
	if !ok {
		return
	}

	format := chi.URLParam(r, "format")
	exp := s.ledger.Plugins().GetExporter(format)
	if exp == nil {
		writeError(w, http.StatusNotFound, "unknown export format "+strconv.Quote(format))
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", rep.ID, format))
	if err := exp.Render(r.Context(), w, []*report.ServiceReport{rep}); err != nil {
		s.logger.Error("export failed", "report_id", rep.ID.String(), "format", format, "error", err)
	}
}

func (s *Server) toggleVisibility(w http.ResponseWriter, r *http.Request) {
	who, ok := auditledger.IdentityFrom(r.Context())
	if !ok {
		s.fail(w, auditledger.ErrNotAuthenticated)
		return
	}
	rep, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !who.Owns(rep.UserID) {
		s.fail(w, fmt.Errorf("%w: only the owner or an admin may change visibility", auditledger.ErrForbidden))
		return
	}

	out, err := s.ledger.ToggleVisibility(r.Context(), rep.ID)
	if err != nil && !(out != nil && errors.Is(err, auditledger.ErrPersistenceFailed)) {
		s.fail(w, err)
		return
	}
	if err != nil {
		w.Header().Set(PersistenceWarningHeader, err.Error())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	who, ok := auditledger.IdentityFrom(r.Context())
	if !ok {
		s.fail(w, auditledger.ErrNotAuthenticated)
		return
	}
	if !who.IsAdmin {
		s.fail(w, fmt.Errorf("%w: admin only", auditledger.ErrForbidden))
		return
	}
	rep, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.ledger.Delete(r.Context(), rep.ID); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

func (s *Server) myReports(w http.ResponseWriter, r *http.Request) {
	who, ok := auditledger.IdentityFrom(r.Context())
	if !ok {
		s.fail(w, auditledger.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, query.ByOwner(s.ledger.Records(r.Context()), who.Address))
}

type referralResponse struct {
	Referrer string                  `json:"referrer"`
	Count    int                     `json:"count"`
	Total    auditledger.Money       `json:"total"`
	History  []*report.ServiceReport `json:"history"`
}

func (s *Server) referrals(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	e := s.ledger.Earnings(r.Context(), addr)
	writeJSON(w, http.StatusOK, referralResponse{
		Referrer: e.Referrer,
		Count:    e.Count,
		Total:    e.Total,
		History:  query.Referrals(e.Records, addr),
	})
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*report.ServiceReport, bool) {
	rid, err := auditledger.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", auditledger.ErrInvalidInput, err))
		return nil, false
	}
	rep, err := s.ledger.Get(r.Context(), rid)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return rep, true
}

// visibleReport loads the report and hides private ones from strangers.
func (s *Server) visibleReport(w http.ResponseWriter, r *http.Request) (*report.ServiceReport, bool) {
	rep, ok := s.lookup(w, r)
	if !ok {
		return nil, false
	}
	who, _ := auditledger.IdentityFrom(r.Context())
	if !query.CanView(rep, who.Address, who.IsAdmin) {
		s.fail(w, fmt.Errorf("%w: report is private", auditledger.ErrForbidden))
		return nil, false
	}
	return rep, true
}
