package simplejson

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/txn2/dremio-simplejson/pkg/audit"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
	defaultSummaryLimit  = 10
)

// auditPage is one page of recorded query runs.
type auditPage struct {
	Events  []audit.Event `json:"events"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// listAuditQueries handles GET /api/v1/audit/queries.
//
// @Summary      List query audit events
// @Description  Returns recorded engine query runs, newest first.
// @Tags         Audit
// @Produce      json
// @Param        user_id     query  string  false  "Only runs by this user"
// @Param        target      query  string  false  "Only runs of this target"
// @Param        success     query  boolean false  "Only successful (true) or failed (false) runs"
// @Param        from        query  string  false  "Runs at or after this RFC 3339 time"
// @Param        to          query  string  false  "Runs at or before this RFC 3339 time"
// @Param        page        query  integer false  "1-based page (default 1)"
// @Param        per_page    query  integer false  "Page size (default 50, max 500)"
// @Success      200  {object}  auditPage
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/audit/queries [get]
func (h *Handler) listAuditQueries(w http.ResponseWriter, r *http.Request) {
	filter, page, err := auditFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid audit query", Details: err.Error()})
		return
	}

	events, err := h.deps.AuditQuerier.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit store unavailable")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, auditPage{Events: events, Page: page, PerPage: filter.Limit})
}

// auditSummary handles GET /api/v1/audit/summary.
//
// @Summary      Summarize query runs
// @Description  Groups recorded runs by target, user or error kind, busiest first.
// @Tags         Audit
// @Produce      json
// @Param        group_by  query  string  false  "target (default), user_id or error_kind"
// @Param        from      query  string  false  "Window start, RFC 3339 (default 24h before to)"
// @Param        to        query  string  false  "Window end, RFC 3339 (default now)"
// @Param        limit     query  integer false  "Maximum groups (default 10, max 100)"
// @Success      200  {array}   audit.SummaryEntry
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/audit/summary [get]
func (h *Handler) auditSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := summaryFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid audit query", Details: err.Error()})
		return
	}
	entries, err := h.deps.AuditSummarizer.Summarize(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func summaryFilter(q url.Values) (audit.SummaryFilter, error) {
	f := audit.SummaryFilter{GroupBy: audit.DimensionTarget}
	if v := q.Get("group_by"); v != "" {
		f.GroupBy = audit.Dimension(v)
	}
	if !f.GroupBy.Valid() {
		return f, fmt.Errorf("group_by: %q is not one of target, user_id, error_kind", f.GroupBy)
	}

	var err error
	if f.StartTime, err = optionalTime(q, "from"); err != nil {
		return f, err
	}
	if f.EndTime, err = optionalTime(q, "to"); err != nil {
		return f, err
	}
	f.Limit, err = positiveInt(q, "limit", defaultSummaryLimit)
	return f, err
}

// auditFilter builds a store filter from query parameters. Malformed values
// are rejected rather than ignored; an oversized per_page is clamped.
func auditFilter(q url.Values) (audit.QueryFilter, int, error) {
	f := audit.QueryFilter{
		UserID: q.Get("user_id"),
		Target: q.Get("target"),
		Limit:  defaultAuditPageSize,
	}

	var err error
	if f.StartTime, err = optionalTime(q, "from"); err != nil {
		return f, 0, err
	}
	if f.EndTime, err = optionalTime(q, "to"); err != nil {
		return f, 0, err
	}
	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, 0, fmt.Errorf("success: %q is not a boolean", v)
		}
		f.Success = &b
	}

	perPage, err := positiveInt(q, "per_page", defaultAuditPageSize)
	if err != nil {
		return f, 0, err
	}
	f.Limit = min(perPage, maxAuditPageSize)

	page, err := positiveInt(q, "page", 1)
	if err != nil {
		return f, 0, err
	}
	f.Offset = (page - 1) * f.Limit
	return f, page, nil
}

func optionalTime(q url.Values, key string) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil //nolint:nilnil // absent parameter
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an RFC 3339 time", key, v)
	}
	return &t, nil
}

func positiveInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s: %q is not a positive integer", key, v)
	}
	return n, nil
}
