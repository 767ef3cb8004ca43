package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warp/revenue-engine/forecast"
)

// =============================================================================
// SEED FILES
// =============================================================================

// SeedJSON is the document layout of a seed file (JSON or YAML).
type SeedJSON struct {
	Companies []CompanyJSON `json:"companies" yaml:"companies"`
	Metrics   []MetricJSON  `json:"metrics" yaml:"metrics"`
	Projects  []ProjectJSON `json:"projects" yaml:"projects"`
}

// Seed is a validated set of records ready to be written.
type Seed struct {
	Companies []forecast.Company
	Metrics   []forecast.PaymentMetric
	Details   []forecast.PaymentMetricDetail
	Projects  []forecast.Project
}

// RecordWriter is the write side of a store. ReplaceMetric must replace the
// metric's installment rows, so applying a seed twice is idempotent.
type RecordWriter interface {
	SaveCompany(ctx context.Context, c forecast.Company) error
	ReplaceMetric(ctx context.Context, m forecast.PaymentMetric, details []forecast.PaymentMetricDetail) error
	SaveProject(ctx context.Context, p forecast.Project) error
}

// LoadSeedFile reads a seed file; ".yaml"/".yml" are parsed as YAML,
// everything else as JSON.
func (f *RecordFactory) LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return f.ParseSeedYAML(data)
	default:
		return f.ParseSeedJSON(data)
	}
}

func (f *RecordFactory) ParseSeedJSON(data []byte) (*Seed, error) {
	var sj SeedJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return nil, fmt.Errorf("failed to parse seed JSON: %w", err)
	}
	return f.Seed(sj)
}

func (f *RecordFactory) ParseSeedYAML(data []byte) (*Seed, error) {
	var sj SeedJSON
	if err := yaml.Unmarshal(data, &sj); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}
	return f.Seed(sj)
}

// Seed validates every record; the first invalid one fails the whole seed.
func (f *RecordFactory) Seed(sj SeedJSON) (*Seed, error) {
	seed := &Seed{}
	for i, cj := range sj.Companies {
		c, err := f.Company(cj)
		if err != nil {
			return nil, fmt.Errorf("companies[%d]: %w", i, err)
		}
		seed.Companies = append(seed.Companies, *c)
	}
	for i, mj := range sj.Metrics {
		m, details, err := f.Metric(mj)
		if err != nil {
			return nil, fmt.Errorf("metrics[%d]: %w", i, err)
		}
		seed.Metrics = append(seed.Metrics, *m)
		seed.Details = append(seed.Details, details...)
	}
	for i, pj := range sj.Projects {
		p, err := f.Project(pj)
		if err != nil {
			return nil, fmt.Errorf("projects[%d]: %w", i, err)
		}
		seed.Projects = append(seed.Projects, *p)
	}
	return seed, nil
}

// Apply writes the seed, companies first. Re-applying it replaces rather
// than duplicates installment rows.
func (s *Seed) Apply(ctx context.Context, w RecordWriter) error {
	for _, c := range s.Companies {
		if err := w.SaveCompany(ctx, c); err != nil {
			return err
		}
	}
	byMetric := make(map[string][]forecast.PaymentMetricDetail, len(s.Metrics))
	for _, d := range s.Details {
		byMetric[d.PaymentMetricID] = append(byMetric[d.PaymentMetricID], d)
	}
	for _, m := range s.Metrics {
		if err := w.ReplaceMetric(ctx, m, byMetric[m.ID]); err != nil {
			return err
		}
	}
	for _, p := range s.Projects {
		if err := w.SaveProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
