package config

import (
	"fmt"
	"strings"
	"time"

	"tkexport/internal/datasource"
)

// DateLayouts are tried in order. Ambiguous inputs such as 03/04/2024 read
// month first.
var DateLayouts = []string{
	"01-02-2006",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
}

// ParseDate parses s with the first matching layout, as midnight UTC.
// Empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q: use MM-DD-YYYY, YYYY-MM-DD or MM/DD/YYYY", s)
}

// Range parses the export bounds. The end bound is midnight of its day, so
// an end date of 2024-01-31 includes rows stamped exactly 2024-01-31
// 00:00:00 but not later that day.
func (e Export) Range() (datasource.Range, error) {
	start, err := ParseDate(e.StartDate)
	if err != nil {
		return datasource.Range{}, fmt.Errorf("start date: %w", err)
	}
	end, err := ParseDate(e.EndDate)
	if err != nil {
		return datasource.Range{}, fmt.Errorf("end date: %w", err)
	}
	return datasource.Range{Start: start, End: end}, nil
}
