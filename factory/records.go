/*
Package factory converts JSON and YAML record definitions into validated
forecast records.

PURPOSE:
  Billing arrangements, installment schedules and projects are authored as
  documents (API request bodies, seed files). The factory validates them
  and builds the forecast types the stores persist. The engine itself never
  validates on read; it only tolerates malformed values.

JSON SCHEMA (metric):
  {
    "id": "m-portal",
    "company_id": "acme",
    "metric_type": "installment_schedule",
    "start_date": "2024-01-01",
    "end_date": "2024-12-31",
    "total_value": "12000.00",
    "details": [
      {"installment_number": 1, "due_date": "2024-03-10", "value": 500},
      {"installment_number": 2, "month_year": "2024-04", "value": "700.00"}
    ]
  }

VALIDATION:
  - metric_type, detail_type and status must be known values
  - start_date <= end_date (ErrInvalidPeriod otherwise)
  - phase percentages are fractions in [0, 1]
  - amounts are non-negative decimals; numbers and strings are both accepted
  - a monthly_fixed metric needs a total_value
  - a detail needs a due_date or a month_year tag

DEFAULTS:
  - missing IDs are generated (uuid v4)
  - is_active defaults to true
  - detail_type defaults to "installment"
  - installment_number defaults to the row position (1-based)
  - project updated_at defaults to created_at, created_at to now

SEE ALSO:
  - seed.go: Seed files and applying them to a store
  - forecast/types.go: The records produced here
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

type CompanyJSON struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type MetricJSON struct {
	ID                     string       `json:"id,omitempty" yaml:"id,omitempty"`
	CompanyID              string       `json:"company_id" yaml:"company_id"`
	IsActive               *bool        `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	Type                   string       `json:"metric_type" yaml:"metric_type"`
	StartDate              string       `json:"start_date" yaml:"start_date"`
	EndDate                string       `json:"end_date" yaml:"end_date"`
	TotalValue             Amount       `json:"total_value,omitempty" yaml:"total_value,omitempty"`
	PlanningPercentage     Amount       `json:"planning_percentage,omitempty" yaml:"planning_percentage,omitempty"`
	HomologationPercentage Amount       `json:"homologation_percentage,omitempty" yaml:"homologation_percentage,omitempty"`
	CompletionPercentage   Amount       `json:"completion_percentage,omitempty" yaml:"completion_percentage,omitempty"`
	Details                []DetailJSON `json:"details,omitempty" yaml:"details,omitempty"`
}

type DetailJSON struct {
	ID                string `json:"id,omitempty" yaml:"id,omitempty"`
	DetailType        string `json:"detail_type,omitempty" yaml:"detail_type,omitempty"`
	InstallmentNumber int    `json:"installment_number,omitempty" yaml:"installment_number,omitempty"`
	DueDate           string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	MonthYear         string `json:"month_year,omitempty" yaml:"month_year,omitempty"`
	Value             Amount `json:"value" yaml:"value"`
}

type ProjectJSON struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	CompanyID string `json:"company_id" yaml:"company_id"`
	Name      string `json:"name" yaml:"name"`
	Budget    Amount `json:"budget,omitempty" yaml:"budget,omitempty"`
	Status    string `json:"status" yaml:"status"`
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"` // RFC3339 or YYYY-MM-DD
	UpdatedAt string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

// =============================================================================
// AMOUNT - decimal text accepted as a JSON/YAML number or string
// =============================================================================

// Amount keeps the literal text of a numeric field so no float rounding
// happens before it becomes a decimal.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a number or a string: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*a = ""
		return nil
	}
	*a = Amount(node.Value)
	return nil
}

// IsSet reports whether the field was given at all.
func (a Amount) IsSet() bool { return strings.TrimSpace(string(a)) != "" }

// Decimal parses the amount. An unset amount is (zero, false, nil).
func (a Amount) Decimal() (decimal.Decimal, bool, error) {
	if !a.IsSet() {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(a)))
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// AmountOf renders a decimal for documents.
func AmountOf(d decimal.NullDecimal) Amount {
	if !d.Valid {
		return ""
	}
	return Amount(d.Decimal.String())
}
