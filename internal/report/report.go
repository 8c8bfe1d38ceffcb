// Package report defines the diagnostic and batch-report types shared by all
// pipeline stages. Nothing in the engine fails a whole run for a recoverable
// condition; stages append diagnostics here and keep going.
package report

import (
	"time"

	"texforge/internal/errors"
)

// Severity classifies a diagnostic
type Severity string

const (
	// SeverityWarning for conditions that were resolved automatically
	SeverityWarning Severity = "warning"
	// SeverityError for conditions that aborted part of the batch
	SeverityError Severity = "error"
)

// Diagnostic represents one non-fatal condition encountered during a run
type Diagnostic struct {
	Severity Severity         `json:"severity"`
	Code     errors.ErrorCode `json:"code"`
	Message  string           `json:"message"`
	File     string           `json:"file,omitempty"`
	Material string           `json:"material,omitempty"`
	Scope    string           `json:"scope,omitempty"`
}

// BatchReport accumulates the outcome of one engine run
type BatchReport struct {
	RunID      string       `json:"runId"`
	Root       string       `json:"root"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Created    []string     `json:"created"`
	Skipped    []string     `json:"skipped"`
	Renamed    []string     `json:"renamed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// NewBatchReport creates an empty report for a run
func NewBatchReport(runID, root string) *BatchReport {
	return &BatchReport{
		RunID:     runID,
		Root:      root,
		StartedAt: time.Now().UTC(),
	}
}

// Warn appends a warning diagnostic
func (r *BatchReport) Warn(code errors.ErrorCode, message string, d Diagnostic) {
	d.Severity = SeverityWarning
	d.Code = code
	d.Message = message
	r.Diagnostics = append(r.Diagnostics, d)
}

// Fail appends an error diagnostic
func (r *BatchReport) Fail(code errors.ErrorCode, message string, d Diagnostic) {
	d.Severity = SeverityError
	d.Code = code
	d.Message = message
	r.Diagnostics = append(r.Diagnostics, d)
}

// Merge appends another report's diagnostics and outcome lists
func (r *BatchReport) Merge(other *BatchReport) {
	if other == nil {
		return
	}
	r.Created = append(r.Created, other.Created...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Renamed = append(r.Renamed, other.Renamed...)
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}

// Warnings returns the warning-severity diagnostics
func (r *BatchReport) Warnings() []Diagnostic {
	return r.bySeverity(SeverityWarning)
}

// Errors returns the error-severity diagnostics
func (r *BatchReport) Errors() []Diagnostic {
	return r.bySeverity(SeverityError)
}

func (r *BatchReport) bySeverity(s Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Finish stamps the completion time and returns the report for chaining
func (r *BatchReport) Finish() *BatchReport {
	r.FinishedAt = time.Now().UTC()
	return r
}
