package statement

import (
	"strings"
	"time"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC3339. dateOnly reports which form was
// given so end dates can be widened to the whole day. An empty value returns
// the zero time.
func parseDate(field, value string) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.ParseInLocation(dateLayout, value, time.UTC); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, errors.NewInvalidDateError(field, value, err)
	}
	return t, false, nil
}

// endOfDay returns the last representable instant of t's day
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// requestWindow is the parsed form of a request's dates. Unset bounds are
// zero and resolved against the entity's calendar once it is loaded.
type requestWindow struct {
	start time.Time
	end   time.Time
}

func parseWindow(req Request) (requestWindow, error) {
	start, _, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return requestWindow{}, err
	}
	end, dateOnly, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return requestWindow{}, err
	}
	if dateOnly {
		end = endOfDay(end)
	}
	return requestWindow{start: start, end: end}, nil
}
