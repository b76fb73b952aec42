package nudge

import (
	"time"

	"github.com/adpatel/circleback/internal/health"
)

// Settings holds every engine tunable. Components receive it at construction
// so tests can vary caps and windows per run instead of patching globals.
type Settings struct {
	Thresholds health.Thresholds

	// IndividualCap bounds reminders created per individual-mode run.
	IndividualCap int
	// DigestCap bounds contact names folded into one digest reminder.
	DigestCap int
	// CooldownHours is the quiet period after a delivered reminder before
	// another may be generated for the same contact.
	CooldownHours int

	// WindowHour is the local hour reminders are delivered at.
	WindowHour int
	// CutoffHour: generation runs before this local hour may still target
	// the same day's window; later runs roll to the next day.
	CutoffHour int

	// DeliveryBatchSize caps reminders sent per delivery run.
	DeliveryBatchSize int

	// Location is the reference timezone for the delivery window.
	Location *time.Location
}

// DefaultSettings returns the production defaults in the given location.
func DefaultSettings(loc *time.Location) Settings {
	if loc == nil {
		loc = time.Local
	}
	return Settings{
		Thresholds:        health.DefaultThresholds(),
		IndividualCap:     5,
		DigestCap:         3,
		CooldownHours:     48,
		WindowHour:        8,
		CutoffHour:        6,
		DeliveryBatchSize: 100,
		Location:          loc,
	}
}

// Cooldown returns the cooldown window as a duration.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.CooldownHours) * time.Hour
}
