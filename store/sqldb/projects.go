package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Store) SaveCompany(ctx context.Context, c forecast.Company) error {
	err := s.exec(ctx, `
		INSERT INTO companies (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		c.ID, c.Name, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save company %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*forecast.Company, error) {
	var c forecast.Company
	err := s.queryRow(ctx, `SELECT id, name FROM companies WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]forecast.Company, error) {
	rows, err := s.query(ctx, `SELECT id, name FROM companies ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var out []forecast.Company
	for rows.Next() {
		var c forecast.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// PROJECTS
// =============================================================================

const projectColumns = `id, company_id, name, budget, status, end_date, created_at, updated_at`

// SaveProject inserts or replaces a project. CreatedAt and UpdatedAt are
// stored as given; they drive revenue attribution.
func (s *Store) SaveProject(ctx context.Context, p forecast.Project) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	err := s.exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			company_id = excluded.company_id,
			name = excluded.name,
			budget = excluded.budget,
			status = excluded.status,
			end_date = excluded.end_date,
			updated_at = excluded.updated_at`,
		p.ID, p.CompanyID, p.Name, generic.FormatNull(p.Budget), string(p.Status),
		nullDate(p.EndDate), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*forecast.Project, error) {
	projects, err := s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, generic.ErrProjectNotFound
	}
	return &projects[0], nil
}

// ListProjects returns all projects, optionally for one company.
func (s *Store) ListProjects(ctx context.Context, companyID string) ([]forecast.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if companyID != "" {
		q += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	return s.queryProjects(ctx, q+` ORDER BY company_id, created_at, id`, args...)
}

// BillableProjects implements forecast.MetricSource.
func (s *Store) BillableProjects(ctx context.Context, companyID string) ([]forecast.Project, error) {
	args := []any{companyID}
	for _, st := range forecast.BillableStatuses {
		args = append(args, string(st))
	}
	return s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects
		WHERE company_id = ? AND status IN (`+placeholders(len(forecast.BillableStatuses))+`)
		ORDER BY created_at, id`, args...)
}

func (s *Store) queryProjects(ctx context.Context, q string, args ...any) ([]forecast.Project, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var out []forecast.Project
	for rows.Next() {
		var (
			p                    forecast.Project
			budget, end          sql.NullString
			status               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &budget, &status, &end, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Budget = generic.ParseAmount(budget.String)
		p.Status = forecast.ProjectStatus(status)
		if p.EndDate, err = parseNullDate(end); err != nil {
			return nil, fmt.Errorf("project %s end_date: %w", p.ID, err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("project %s created_at: %w", p.ID, err)
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("project %s updated_at: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
