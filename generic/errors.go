/*
errors.go - Centralized error types for the revenue engine

ERROR CATEGORIES:
  1. Data access - a collaborator query failed; the whole forecast fails
  2. Malformed record - one numeric field is absent or non-numeric;
     recovered by treating the value as zero
  3. Validation - client supplied an invalid period or record

USAGE:
    if errors.Is(err, generic.ErrDataAccess) {
        // surface to caller, never return a partial forecast
    }

SEE ALSO:
  - forecast/engine.go: Wraps source failures in DataAccessError
  - factory/metric.go: Returns InvalidRecordError
  - api/handlers.go: Maps errors to HTTP status
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDataAccess is returned when a metric, detail or project query fails.
	ErrDataAccess = errors.New("data access failure")

	// ErrMalformedRecord marks a record whose numeric field could not be used.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidPeriod is returned for a malformed month, year, date, or for
	// a window whose end precedes its start.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidRecord is returned when a record fails validation on write.
	ErrInvalidRecord = errors.New("invalid record")

	ErrMetricNotFound  = errors.New("payment metric not found")
	ErrCompanyNotFound = errors.New("company not found")
	ErrProjectNotFound = errors.New("project not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DataAccessError names the query that failed.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failure in %s: %v", e.Op, e.Err)
}

// Is lets errors.Is match ErrDataAccess while Unwrap exposes the cause.
func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }
func (e *DataAccessError) Unwrap() error         { return e.Err }

// MalformedRecordError describes one unusable numeric field.
type MalformedRecordError struct {
	Record   string // "payment_metric", "payment_metric_detail", "project"
	RecordID string
	Field    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s %s: field %s is missing or non-numeric, counted as 0",
		e.Record, e.RecordID, e.Field)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// InvalidRecordError is a validation failure on a single field.
type InvalidRecordError struct {
	Field  string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error { return ErrInvalidRecord }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidRecord)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMetricNotFound) ||
		errors.Is(err, ErrCompanyNotFound) ||
		errors.Is(err, ErrProjectNotFound)
}
