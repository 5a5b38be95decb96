// Package weeks handles the Monday to Sunday crediting weeks.
package weeks

import (
	"errors"
	"time"
)

const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

type Range struct {
	Start string
	End   string
}

func Parse(value string) (time.Time, error) {
	t, err := time.Parse(Layout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseRange parses both ends and rejects start after end.
func ParseRange(start, end string) (Range, error) {
	s, err := Parse(start)
	if err != nil {
		return Range{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Range{}, err
	}
	if s.After(e) {
		return Range{}, ErrInvalidDate
	}
	return Range{Start: s.Format(Layout), End: e.Format(Layout)}, nil
}

// For returns the week containing t.
func For(t time.Time) Range {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return Range{Start: monday.Format(Layout), End: monday.AddDate(0, 0, 6).Format(Layout)}
}

// Previous returns the full week before the one containing t.
func Previous(t time.Time) Range {
	return For(t.AddDate(0, 0, -7))
}
