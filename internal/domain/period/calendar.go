// Package period resolves reporting periods for an entity's fiscal calendar.
package period

import (
	"time"

	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
)

// Calendar is a fiscal calendar whose years begin on the first day of
// YearStartMonth.
type Calendar struct {
	YearStartMonth time.Month
}

// ForEntity returns the entity's fiscal calendar. Out of range start months
// fall back to January.
func ForEntity(entity *ledger.Entity) Calendar {
	if entity == nil || entity.YearStartMonth < 1 || entity.YearStartMonth > 12 {
		return Calendar{YearStartMonth: time.January}
	}
	return Calendar{YearStartMonth: time.Month(entity.YearStartMonth)}
}

// FiscalYearStart returns the first instant of the fiscal year containing date.
func (c Calendar) FiscalYearStart(date time.Time) time.Time {
	startMonth := c.YearStartMonth
	if startMonth < time.January || startMonth > time.December {
		startMonth = time.January
	}
	year := date.Year()
	if date.Month() < startMonth {
		year--
	}
	return time.Date(year, startMonth, 1, 0, 0, 0, 0, date.Location())
}

// FiscalYear labels the fiscal year containing date by the calendar year it
// starts in.
func (c Calendar) FiscalYear(date time.Time) int {
	return c.FiscalYearStart(date).Year()
}

// PeriodStart is the start of the reporting period that is current at now.
func (c Calendar) PeriodStart(now time.Time) time.Time {
	return c.FiscalYearStart(now)
}
