package shared

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format the backend accepts for filters.
const DateLayout = "2006-01-02"

// Period is an inclusive date range expressed as backend date strings.
// Either bound may be empty for open-ended list filters. No timezone
// normalization is applied; the backend decides the granularity.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewPeriod trims and validates both bounds.
func NewPeriod(start, end string) (Period, error) {
	p := Period{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate checks the date format of non-empty bounds and their order.
func (p Period) Validate() error {
	var s, e time.Time
	var err error
	if p.Start != "" {
		if s, err = time.Parse(DateLayout, p.Start); err != nil {
			return ErrInvalidDateRange.WithMessagef("Invalid start date %q, expected YYYY-MM-DD", p.Start)
		}
	}
	if p.End != "" {
		if e, err = time.Parse(DateLayout, p.End); err != nil {
			return ErrInvalidDateRange.WithMessagef("Invalid end date %q, expected YYYY-MM-DD", p.End)
		}
	}
	if p.Start != "" && p.End != "" && s.After(e) {
		return ErrInvalidDateRange.WithMessage("Start date must not be after end date")
	}
	return nil
}

// IsComplete reports whether both bounds are set.
func (p Period) IsComplete() bool {
	return p.Start != "" && p.End != ""
}

// IsZero reports whether neither bound is set.
func (p Period) IsZero() bool {
	return p.Start == "" && p.End == ""
}

// String renders the period the way report headers show it.
func (p Period) String() string {
	start, end := p.Start, p.End
	if start == "" {
		start = "?"
	}
	if end == "" {
		end = "?"
	}
	return start + " to " + end
}
