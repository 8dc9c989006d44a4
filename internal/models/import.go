package models

import (
	"time"
)

// ImportStatus represents the outcome of a CSV import
type ImportStatus string

const (
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportRecord describes a single CSV import attempt
type ImportRecord struct {
	ID             string       `json:"import_id"`
	Status         ImportStatus `json:"status"`
	Filename       string       `json:"filename,omitempty"`
	TotalRows      int          `json:"total_rows"`
	ImportedCount  int          `json:"imported"`
	SkippedCount   int          `json:"skipped"`
	CoercedCount   int          `json:"coerced"`
	MissingHeaders []string     `json:"missing_headers,omitempty"`
	Error          string       `json:"error,omitempty"`
	UserIDs        []string     `json:"user_ids,omitempty"`
	DurationMs     int64        `json:"duration_ms"`
	RowsPerSec     float64      `json:"rows_per_sec,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ValidationError represents a single row-level notice or validation failure
type ValidationError struct {
	Line    int         `json:"line"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ImportResponse is the API response for an import
type ImportResponse struct {
	ImportRecord
	Errors      []ValidationError `json:"errors,omitempty"`
	ErrorCount  int               `json:"error_count,omitempty"`
	ErrorReport string            `json:"error_report_url,omitempty"`
}
