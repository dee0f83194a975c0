// Package timeparam parses the date and date-time strings clients send in
// query parameters and JSON bodies.
package timeparam

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Layouts are tried in order. The first is what HTML datetime-local inputs
// produce.
var Layouts = []string{
	"2006-01-02T15:04",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse accepts any of Layouts. Values without a zone are read as UTC.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Query parses an optional query parameter. A missing parameter yields nil.
func Query(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EndOfDay widens a bare date used as an upper bound to include the whole day.
func EndOfDay(raw string, t time.Time) time.Time {
	if len(strings.TrimSpace(raw)) == len("2006-01-02") {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
