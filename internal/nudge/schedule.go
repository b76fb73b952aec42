package nudge

import "time"

// NextWindow computes when a freshly generated reminder should be delivered.
// Generation runs before CutoffHour local time target the same day's window;
// anything later rolls to the next day. Reminders therefore never fire the
// moment they are created, and delivery lands in one predictable daily batch.
func (s Settings) NextWindow(now time.Time) time.Time {
	local := now.In(s.Location)
	window := time.Date(local.Year(), local.Month(), local.Day(), s.WindowHour, 0, 0, 0, s.Location)
	if local.Hour() >= s.CutoffHour {
		window = window.AddDate(0, 0, 1)
	}
	return window
}
