package nudge

import (
	"testing"
	"time"
)

func TestNextWindow(t *testing.T) {
	t.Parallel()
	s := DefaultSettings(time.UTC)

	cases := map[string]struct {
		now  time.Time
		want time.Time
	}{
		"before cutoff targets same day": {
			now:  time.Date(2025, 6, 15, 4, 30, 0, 0, time.UTC),
			want: time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC),
		},
		"at cutoff rolls to next day": {
			now:  time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC),
		},
		"midday rolls to next day": {
			now:  time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC),
			want: time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC),
		},
		"late evening rolls to next day": {
			now:  time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC),
			want: time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC),
		},
	}

	for name, tc := range cases {
		if got := s.NextWindow(tc.now); !got.Equal(tc.want) {
			t.Errorf("%s: NextWindow(%v) = %v, want %v", name, tc.now, got, tc.want)
		}
	}
}

func TestNextWindowNeverImmediate(t *testing.T) {
	t.Parallel()
	s := DefaultSettings(time.UTC)

	// Whenever generation runs, the window must be in the future.
	for hour := 0; hour < 24; hour++ {
		now := time.Date(2025, 6, 15, hour, 10, 0, 0, time.UTC)
		if got := s.NextWindow(now); !got.After(now) {
			t.Errorf("NextWindow(%v) = %v is not in the future", now, got)
		}
	}
}
