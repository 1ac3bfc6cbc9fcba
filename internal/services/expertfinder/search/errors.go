package search

import "strings"

// Source names used in degradation reports.
const (
	SourceDirectory = "directory"
	SourceRecords   = "records"
)

// SourceUnavailableError reports that one search source failed and was
// treated as empty.
type SourceUnavailableError struct {
	Source string
	Err    error
}

// Error returns the source failure message.
func (e *SourceUnavailableError) Error() string {
	if e == nil {
		return "source unavailable"
	}
	if strings.TrimSpace(e.Source) == "" {
		return "source unavailable"
	}
	if e.Err == nil {
		return e.Source + " unavailable"
	}
	return e.Source + " unavailable: " + e.Err.Error()
}

// Unwrap exposes the wrapped source failure.
func (e *SourceUnavailableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
