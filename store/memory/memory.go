// Package memory provides an in-memory forecast.MetricSource (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	companies map[string]forecast.Company
	metrics   map[string]forecast.PaymentMetric
	details   map[string][]forecast.PaymentMetricDetail // by metric ID
	projects  map[string][]forecast.Project             // by company ID
}

var _ forecast.MetricSource = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		companies: make(map[string]forecast.Company),
		metrics:   make(map[string]forecast.PaymentMetric),
		details:   make(map[string][]forecast.PaymentMetricDetail),
		projects:  make(map[string][]forecast.Project),
	}
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) PutCompany(c forecast.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
}

// PutMetric inserts or replaces a metric.
func (m *Memory) PutMetric(metric forecast.PaymentMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metric.ID] = metric
}

func (m *Memory) PutDetail(d forecast.PaymentMetricDetail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[d.PaymentMetricID] = append(m.details[d.PaymentMetricID], d)
}

// PutProject inserts or replaces a project.
func (m *Memory) PutProject(p forecast.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.projects[p.CompanyID]
	for i := range list {
		if list[i].ID == p.ID {
			list[i] = p
			return
		}
	}
	m.projects[p.CompanyID] = append(list, p)
}

// Context-aware forms used by factory.Seed.Apply.

func (m *Memory) SaveCompany(_ context.Context, c forecast.Company) error {
	m.PutCompany(c)
	return nil
}

// ReplaceMetric stores the metric and swaps in its installment rows.
func (m *Memory) ReplaceMetric(_ context.Context, metric forecast.PaymentMetric, details []forecast.PaymentMetricDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metric.ID] = metric
	m.details[metric.ID] = append([]forecast.PaymentMetricDetail(nil), details...)
	return nil
}

func (m *Memory) SaveProject(_ context.Context, p forecast.Project) error {
	m.PutProject(p)
	return nil
}

// =============================================================================
// READS - forecast.MetricSource
// =============================================================================

func (m *Memory) ActiveMetrics(_ context.Context, companyIDs []string) ([]forecast.PaymentMetric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var allowed map[string]bool
	if companyIDs != nil {
		allowed = make(map[string]bool, len(companyIDs))
		for _, id := range companyIDs {
			allowed[id] = true
		}
	}

	var out []forecast.PaymentMetric
	for _, metric := range m.metrics {
		if !metric.IsActive {
			continue
		}
		if allowed != nil && !allowed[metric.CompanyID] {
			continue
		}
		if c, ok := m.companies[metric.CompanyID]; ok {
			metric.CompanyName = c.Name
		}
		out = append(out, metric)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompanyID != out[j].CompanyID {
			return out[i].CompanyID < out[j].CompanyID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) InstallmentsDueBetween(_ context.Context, metricID string, from, to generic.Date) ([]forecast.PaymentMetricDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	window := generic.Period{Start: from, End: to}
	var out []forecast.PaymentMetricDetail
	for _, d := range m.details[metricID] {
		if d.DueDate != nil && window.Contains(*d.DueDate) {
			out = append(out, d)
		}
	}
	sortDetails(out)
	return out, nil
}

func (m *Memory) InstallmentsTagged(_ context.Context, metricID string, month generic.MonthYear) ([]forecast.PaymentMetricDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tag := month.String()
	var out []forecast.PaymentMetricDetail
	for _, d := range m.details[metricID] {
		if d.MonthYear != nil && *d.MonthYear == tag {
			out = append(out, d)
		}
	}
	sortDetails(out)
	return out, nil
}

func (m *Memory) InstallmentCount(_ context.Context, metricID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, d := range m.details[metricID] {
		if d.DetailType == forecast.DetailInstallment {
			n++
		}
	}
	return n, nil
}

func (m *Memory) BillableProjects(_ context.Context, companyID string) ([]forecast.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []forecast.Project
	for _, p := range m.projects[companyID] {
		if p.Status.IsBillable() {
			out = append(out, p)
		}
	}
	return out, nil
}

func sortDetails(ds []forecast.PaymentMetricDetail) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].InstallmentNumber < ds[j].InstallmentNumber
	})
}
