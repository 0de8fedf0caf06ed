package analytics

import "errors"

var (
	// ErrEmptyInput indicates there were no records to derive a calendar from
	ErrEmptyInput = errors.New("no activity records")

	// ErrMalformedRange indicates an explicit range whose start is after its end
	ErrMalformedRange = errors.New("malformed date range")

	// ErrRangeTooLarge indicates a range longer than the configured day cap
	ErrRangeTooLarge = errors.New("date range too large")

	// ErrSeriesMismatch indicates a series that is not aligned to its calendar index
	ErrSeriesMismatch = errors.New("series not aligned to calendar index")
)

// Unavailable marks a derived metric that could not be produced
type Unavailable struct {
	Metric string `json:"metric"`
	Reason string `json:"reason"`
}
