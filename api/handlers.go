/*
handlers.go - HTTP API handlers for the revenue forecast engine

PURPOSE:
  Exposes the forecast engine and the record store via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Forecast:
    GET    /api/forecast/monthly?month=YYYY-MM&company_ids=a,b
    GET    /api/forecast/yearly?year=YYYY&company_ids=a,b
    GET    /api/forecast/export?month=YYYY-MM | year=YYYY   (XLSX)

  Records:
    GET    /api/metrics                 List metrics (?company_id=)
    POST   /api/metrics                 Create or replace metric from JSON
    GET    /api/metrics/{id}            Metric with its installment rows
    POST   /api/metrics/{id}/details    Append installment rows
    GET    /api/projects                List projects (?company_id=)
    POST   /api/projects                Create or update project
    GET    /api/companies               List companies
    POST   /api/companies               Create company

  Snapshots:
    GET    /api/snapshots               List stored forecasts (?period=&limit=)
    POST   /api/snapshots/run           Snapshot a month now

COMPANY FILTER:
  company_ids absent        -> every company
  company_ids= (empty)      -> no company, empty forecast
  company_ids=a,b           -> only a and b

CACHING:
  Forecast responses go through Handler.Cache (a no-op unless configured).
  Every record write invalidates it.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid period, invalid record
  - 404: Resource not found
  - 500: Data access failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/revenue-engine/cache"
	"github.com/warp/revenue-engine/export"
	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/store/sqldb"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqldb.Store
	Engine    *forecast.Engine
	Factory   *factory.RecordFactory
	Cache     cache.ResultCache
	Snapshots *SnapshotScheduler

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store. Caching is off
// and the snapshot scheduler is created but not started.
func NewHandler(store *sqldb.Store) *Handler {
	engine := forecast.NewEngine(store)
	return &Handler{
		Store:     store,
		Engine:    engine,
		Factory:   factory.NewRecordFactory(),
		Cache:     cache.Nop{},
		Snapshots: NewSnapshotScheduler(store, engine),
	}
}

// =============================================================================
// FORECAST ENDPOINTS
// =============================================================================

// GetMonthlyForecast computes the forecast of one calendar month.
func (h *Handler) GetMonthlyForecast(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		writeError(w, http.StatusBadRequest, "month is required (YYYY-MM)", nil)
		return
	}
	m, err := generic.ParseMonthYear(month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	h.serveForecast(w, r, generic.ForMonth(m))
}

// GetYearlyForecast computes the forecast of one calendar year.
func (h *Handler) GetYearlyForecast(w http.ResponseWriter, r *http.Request) {
	year := r.URL.Query().Get("year")
	if year == "" {
		writeError(w, http.StatusBadRequest, "year is required (YYYY)", nil)
		return
	}
	y, err := generic.ParseYear(year)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	h.serveForecast(w, r, generic.ForYear(y))
}

func (h *Handler) serveForecast(w http.ResponseWriter, r *http.Request, period generic.ReportPeriod) {
	ctx := r.Context()
	companyIDs := parseCompanyIDs(r)
	key := cache.Key(period.Granularity.String(), period.String(), companyIDs)

	// gen is read before computing; Set discards the result if a write
	// invalidated the cache in between.
	body, gen, ok, err := h.Cache.Get(ctx, key)
	cacheable := err == nil
	if err != nil {
		log.Printf("[Cache] Get %s failed: %v", key, err)
	} else if ok {
		w.Header().Set("X-Cache", "HIT")
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	res, err := h.Engine.Compute(ctx, period, companyIDs)
	if err != nil {
		h.writeDomainError(w, "Failed to compute forecast", err)
		return
	}
	logWarnings(period, res.Warnings)

	body, err = json.Marshal(toForecastDTO(res, time.Now()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode forecast", err)
		return
	}
	if cacheable {
		if err := h.Cache.Set(ctx, gen, key, body); err != nil {
			log.Printf("[Cache] Set %s failed: %v", key, err)
		}
	}

	w.Header().Set("X-Cache", "MISS")
	writeRawJSON(w, http.StatusOK, body)
}

// ExportForecast streams the forecast as an XLSX workbook.
func (h *Handler) ExportForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := generic.ParseReportPeriod(q.Get("month"), q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Provide exactly one of month (YYYY-MM) or year (YYYY)", err)
		return
	}

	res, err := h.Engine.Compute(r.Context(), period, parseCompanyIDs(r))
	if err != nil {
		h.writeDomainError(w, "Failed to compute forecast", err)
		return
	}
	logWarnings(period, res.Warnings)

	// Build into a buffer so a failure still gets a JSON error.
	var buf bytes.Buffer
	if err := export.Write(&buf, res); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export forecast", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(res)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[Forecast] export write failed: %v", err)
	}
}

func logWarnings(period generic.ReportPeriod, warnings []*generic.MalformedRecordError) {
	for _, w := range warnings {
		log.Printf("[Forecast] %s: %v", period, w)
	}
}

// parseCompanyIDs distinguishes an absent filter (nil) from an empty one.
func parseCompanyIDs(r *http.Request) []string {
	values, present := r.URL.Query()["company_ids"]
	if !present {
		return nil
	}
	ids := []string{}
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// =============================================================================
// METRIC ENDPOINTS
// =============================================================================

// ListMetrics returns every metric, optionally for one company.
func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	metrics, err := h.Store.ListMetrics(ctx, r.URL.Query().Get("company_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list metrics", err)
		return
	}

	dtos := make([]MetricDTO, 0, len(metrics))
	for _, m := range metrics {
		details, err := h.Store.ListDetails(ctx, m.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list installments", err)
			return
		}
		dtos = append(dtos, toMetricDTO(m, details))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMetric creates a metric (and its installment rows) from JSON. Posting
// an existing ID replaces the metric together with all of its rows.
func (h *Handler) CreateMetric(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, details, err := h.Factory.ParseMetric(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid metric", err)
		return
	}
	company, err := h.Store.GetCompany(ctx, m.CompanyID)
	if err != nil {
		h.writeDomainError(w, "Unknown company", err)
		return
	}

	if err := h.Store.ReplaceMetric(ctx, *m, details); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save metric", err)
		return
	}
	h.invalidate(r)

	m.CompanyName = company.Name
	writeJSON(w, http.StatusCreated, toMetricDTO(*m, details))
}

// GetMetric returns a metric with its installment rows.
func (h *Handler) GetMetric(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.Store.GetMetric(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Metric not found", err)
		return
	}
	details, err := h.Store.ListDetails(ctx, m.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list installments", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricDTO(*m, details))
}

// AddMetricDetails appends installment rows to a metric. The body is a
// JSON array of rows; numbering continues after the existing rows.
func (h *Handler) AddMetricDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.Store.GetMetric(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Metric not found", err)
		return
	}

	var rows []factory.DetailJSON
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	existing, err := h.Store.ListDetails(ctx, m.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list installments", err)
		return
	}

	details := make([]forecast.PaymentMetricDetail, 0, len(rows))
	for i, dj := range rows {
		d, err := h.Factory.Detail(m.ID, len(existing)+i, dj)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid installment at index %d", i), err)
			return
		}
		details = append(details, *d)
	}
	if err := h.Store.AddDetails(ctx, details); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save installments", err)
		return
	}
	h.invalidate(r)

	writeJSON(w, http.StatusCreated, toMetricDTO(*m, append(existing, details...)))
}

// =============================================================================
// PROJECT ENDPOINTS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context(), r.URL.Query().Get("company_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveProject creates a project, or updates it when the ID exists. A status
// change moves the project's attribution month to updated_at.
func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Factory.ParseProject(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project", err)
		return
	}
	if _, err := h.Store.GetCompany(ctx, p.CompanyID); err != nil {
		h.writeDomainError(w, "Unknown company", err)
		return
	}

	status := http.StatusCreated
	if existing, err := h.Store.GetProject(ctx, p.ID); err == nil {
		status = http.StatusOK
		p.CreatedAt = existing.CreatedAt
		if p.UpdatedAt.Before(p.CreatedAt) {
			p.UpdatedAt = h.Factory.Now()
		}
	} else if !errors.Is(err, generic.ErrProjectNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}

	if err := h.Store.SaveProject(ctx, *p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	h.invalidate(r)

	writeJSON(w, status, toProjectDTO(*p))
}

// =============================================================================
// COMPANY ENDPOINTS
// =============================================================================

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies", err)
		return
	}
	dtos := make([]CompanyDTO, 0, len(companies))
	for _, c := range companies {
		dtos = append(dtos, CompanyDTO{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req factory.CompanyJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Factory.Company(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid company", err)
		return
	}
	if err := h.Store.SaveCompany(r.Context(), *c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save company", err)
		return
	}
	h.invalidate(r)

	writeJSON(w, http.StatusCreated, CompanyDTO{ID: c.ID, Name: c.Name})
}

// =============================================================================
// SNAPSHOT ENDPOINTS
// =============================================================================

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	snaps, err := h.Store.ListSnapshots(r.Context(), r.URL.Query().Get("period"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}
	dtos := make([]SnapshotDTO, 0, len(snaps))
	for _, s := range snaps {
		dtos = append(dtos, toSnapshotDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunSnapshot stores the forecast of a month now.
func (h *Handler) RunSnapshot(w http.ResponseWriter, r *http.Request) {
	var req RunSnapshotRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	month := generic.MonthOf(h.Snapshots.now())
	if req.Month != "" {
		m, err := generic.ParseMonthYear(req.Month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		month = m
	}

	snap, err := h.Snapshots.Snapshot(r.Context(), month)
	if err != nil {
		h.writeDomainError(w, "Failed to snapshot forecast", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(*snap))
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DB().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) invalidate(r *http.Request) {
	if err := h.Cache.Invalidate(r.Context()); err != nil {
		log.Printf("[Cache] Invalidate failed: %v", err)
	}
}

// writeDomainError maps the engine's error taxonomy to HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		if errors.Is(err, generic.ErrDataAccess) {
			log.Printf("[Forecast] %s: %v", message, err)
		}
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
