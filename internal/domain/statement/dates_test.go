package statement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name: "empty",
			req:  Request{},
		},
		{
			name:      "date only",
			req:       Request{StartDate: "2024-01-01", EndDate: "2024-01-31"},
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:      "rfc3339 end is kept as given",
			req:       Request{StartDate: " 2024-01-01 ", EndDate: "2024-01-31T08:30:00Z"},
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 31, 8, 30, 0, 0, time.UTC),
		},
		{
			name:    "garbage",
			req:     Request{EndDate: "31.01.2024"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := parseWindow(tt.req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(window.start), "start %s", window.start)
			assert.True(t, tt.wantEnd.Equal(window.end), "end %s", window.end)
		})
	}
}
