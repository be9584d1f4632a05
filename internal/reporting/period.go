// Package reporting holds the date-window helpers shared by the analytics and
// cost dashboards.
package reporting

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// ErrMissingPeriod is returned when start or end is absent.
var ErrMissingPeriod = errors.New("reporting: start and end are required")

// ErrInvalidPeriod is returned when start or end cannot be parsed.
var ErrInvalidPeriod = errors.New("reporting: invalid start or end")

// Timezone is the clinic's local zone; daily buckets are cut in it.
const Timezone = "America/Sao_Paulo"

// MissingPeriodMessage is the staff-facing error for ErrMissingPeriod.
const MissingPeriodMessage = "Parâmetros 'start' e 'end' obrigatórios"

// Period is a report window. Until is the end of the end day, so rows on the
// end date are included.
type Period struct {
	Start string    `json:"start"`
	End   string    `json:"end"`
	From  time.Time `json:"-"`
	Until time.Time `json:"-"`
}

// Location loads the clinic timezone, falling back to UTC-3.
func Location() *time.Location {
	loc, err := time.LoadLocation(Timezone)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// ParsePeriod reads start and end from query values.
func ParsePeriod(q url.Values, loc *time.Location) (Period, error) {
	start := strings.TrimSpace(q.Get("start"))
	end := strings.TrimSpace(q.Get("end"))
	if start == "" || end == "" {
		return Period{}, ErrMissingPeriod
	}
	from, err := parseInstant(start, loc)
	if err != nil {
		return Period{}, err
	}
	endInstant, err := parseInstant(end, loc)
	if err != nil {
		return Period{}, err
	}
	endInstant = endInstant.In(loc)
	endDay := time.Date(endInstant.Year(), endInstant.Month(), endInstant.Day(), 0, 0, 0, 0, loc)
	return Period{Start: start, End: end, From: from, Until: endDay.AddDate(0, 0, 1)}, nil
}

func parseInstant(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidPeriod
}
