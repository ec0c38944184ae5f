package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendar_FiscalYearStart(t *testing.T) {
	tests := []struct {
		name       string
		startMonth int
		date       time.Time
		want       time.Time
	}{
		{"calendar year", 1, date(2024, time.June, 15), date(2024, time.January, 1)},
		{"first day of year", 1, date(2024, time.January, 1), date(2024, time.January, 1)},
		{"april year after start", 4, date(2024, time.June, 15), date(2024, time.April, 1)},
		{"april year before start", 4, date(2024, time.March, 31), date(2023, time.April, 1)},
		{"july year on start month", 7, date(2024, time.July, 1), date(2024, time.July, 1)},
		{"unset month defaults to january", 0, date(2024, time.March, 3), date(2024, time.January, 1)},
		{"invalid month defaults to january", 13, date(2024, time.March, 3), date(2024, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := ForEntity(&ledger.Entity{YearStartMonth: tt.startMonth})
			assert.Equal(t, tt.want, cal.FiscalYearStart(tt.date))
		})
	}
}

func TestCalendar_MidDayDatesTruncateToYearStart(t *testing.T) {
	cal := Calendar{YearStartMonth: time.January}
	got := cal.FiscalYearStart(time.Date(2024, time.May, 5, 17, 30, 0, 0, time.UTC))
	assert.Equal(t, date(2024, time.January, 1), got)
}

func TestCalendar_FiscalYearAndPeriodStart(t *testing.T) {
	cal := ForEntity(&ledger.Entity{YearStartMonth: 4})

	assert.Equal(t, 2023, cal.FiscalYear(date(2024, time.February, 1)))
	assert.Equal(t, 2024, cal.FiscalYear(date(2024, time.April, 1)))
	assert.Equal(t, date(2023, time.April, 1), cal.PeriodStart(date(2024, time.February, 1)))
}

func TestForEntity_Nil(t *testing.T) {
	assert.Equal(t, time.January, ForEntity(nil).YearStartMonth)
}
