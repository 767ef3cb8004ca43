/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with small,
	hand-checkable portfolios. Each one is a YAML seed run through the
	record factory, so scenarios exercise the same validation as the API.

AVAILABLE SCENARIOS:

	monthly-fixed:     120000 amortized over 12 months (10000/month)
	phase-recognition: Project completed in May, 100% of budget in May only
	installments:      Two rows due in June (1200) plus a legacy tagged row
	mixed-portfolio:   All three models, two companies, one malformed metric

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mixed-portfolio"}

	GET /api/forecast/monthly?month=2024-06

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Forecast endpoints
  - factory/seed.go: Seed document format
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/forecast"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "monthly-fixed",
		Name:        "Monthly Fixed",
		Description: "120000 contract over 2024, billed 10000 per month",
		Month:       "2024-06",
	},
	{
		ID:          "phase-recognition",
		Name:        "Phase Recognition",
		Description: "Project created in March, completed in May: full budget recognized in May",
		Month:       "2024-05",
	},
	{
		ID:          "installments",
		Name:        "Installments",
		Description: "Installments of 500 and 700 due in June, plus a legacy row tagged for August",
		Month:       "2024-06",
	},
	{
		ID:          "mixed-portfolio",
		Name:        "Mixed Portfolio",
		Description: "All billing models across two companies, with one malformed metric counted as zero",
		Month:       "2024-06",
	},
}

const monthlyFixedSeed = `
companies:
  - id: acme
    name: Acme Corp
metrics:
  - id: acme-retainer
    company_id: acme
    metric_type: monthly_fixed
    start_date: "2024-01-01"
    end_date: "2024-12-31"
    total_value: 120000
`

const phaseRecognitionSeed = `
companies:
  - id: globex
    name: Globex
metrics:
  - id: globex-phases
    company_id: globex
    metric_type: percentage_by_phase
    start_date: "2024-01-01"
    end_date: "2024-12-31"
    planning_percentage: 0.2
    homologation_percentage: 0.3
    completion_percentage: 0.5
projects:
  - id: globex-portal
    company_id: globex
    name: Portal
    budget: 100000
    status: completed
    created_at: "2024-03-04T10:00:00Z"
    updated_at: "2024-05-20T16:30:00Z"
    end_date: "2024-05-20"
`

const installmentsSeed = `
companies:
  - id: initech
    name: Initech
metrics:
  - id: initech-schedule
    company_id: initech
    metric_type: installment_schedule
    start_date: "2024-01-01"
    end_date: "2024-12-31"
    details:
      - installment_number: 1
        due_date: "2024-06-05"
        value: 500
      - installment_number: 2
        due_date: "2024-06-20"
        value: 700
      - installment_number: 3
        detail_type: installment_amount
        month_year: "2024-08"
        value: 300
`

const mixedPortfolioSeed = `
companies:
  - id: acme
    name: Acme Corp
  - id: globex
    name: Globex
metrics:
  - id: acme-retainer
    company_id: acme
    metric_type: monthly_fixed
    start_date: "2024-01-01"
    end_date: "2024-12-31"
    total_value: 120000
  - id: acme-schedule
    company_id: acme
    metric_type: installment_schedule
    start_date: "2024-01-01"
    end_date: "2024-12-31"
    details:
      - due_date: "2024-06-05"
        value: 500
      - due_date: "2024-09-05"
        value: 500
  - id: globex-phases
    company_id: globex
    metric_type: percentage_by_phase
    start_date: "2024-01-01"
    end_date: "2024-12-31"
    planning_percentage: 0.1
    homologation_percentage: 0.4
    completion_percentage: 0.5
  - id: globex-support
    company_id: globex
    metric_type: monthly_fixed
    start_date: "2024-01-01"
    end_date: "2024-12-31"
    total_value: 24000
projects:
  - id: globex-app
    company_id: globex
    name: App
    budget: 20000
    status: testing
    created_at: "2024-02-01T09:00:00Z"
    updated_at: "2024-06-12T11:00:00Z"
  - id: globex-site
    company_id: globex
    name: Site
    budget: 8000
    status: planning
    created_at: "2024-06-03T09:00:00Z"
`

var scenarioSeeds = map[string]string{
	"monthly-fixed":     monthlyFixedSeed,
	"phase-recognition": phaseRecognitionSeed,
	"installments":      installmentsSeed,
	"mixed-portfolio":   mixedPortfolioSeed,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := scenarioSeeds[req.ScenarioID]; !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.invalidate(r)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase deletes every record.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	h.invalidate(r)

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.currentScenario = ""

	seed, err := h.Factory.ParseSeedYAML([]byte(scenarioSeeds[id]))
	if err != nil {
		return err
	}
	if err := seed.Apply(ctx, h.Store); err != nil {
		return err
	}

	if id == "mixed-portfolio" {
		if err := h.addMalformedMetric(ctx); err != nil {
			return err
		}
	}

	h.currentScenario = id
	return nil
}

// addMalformedMetric stores a metric whose total is not a number. The
// factory refuses such input, so it is written straight to the table to
// mimic a legacy import.
func (h *Handler) addMalformedMetric(ctx context.Context) error {
	m, _, err := h.Factory.Metric(factory.MetricJSON{
		ID:         "acme-legacy",
		CompanyID:  "acme",
		Type:       string(forecast.MetricMonthlyFixed),
		StartDate:  "2024-01-01",
		EndDate:    "2024-12-31",
		TotalValue: "1000",
	})
	if err != nil {
		return err
	}
	if err := h.Store.SaveMetric(ctx, *m); err != nil {
		return err
	}
	_, err = h.Store.DB().ExecContext(ctx,
		`UPDATE payment_metrics SET total_value = 'n/a' WHERE id = 'acme-legacy'`)
	return err
}
