package nudge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adpatel/circleback/internal/model"
	"gorm.io/gorm"
)

// ErrReminderNotFound is returned by lifecycle transitions for unknown IDs.
var ErrReminderNotFound = errors.New("reminder not found")

// Dismiss marks a pending reminder dismissed. Terminal reminders absorb the
// call: re-dismissing, or dismissing one already delivered or acted on,
// changes nothing and returns no error.
func (e *Engine) Dismiss(ctx context.Context, reminderID string, now time.Time) error {
	return e.transition(ctx, reminderID, model.StatusDismissed, "dismissed_at", now)
}

// ActOn marks a pending reminder acted on. Idempotent the same way Dismiss is.
func (e *Engine) ActOn(ctx context.Context, reminderID string, now time.Time) error {
	return e.transition(ctx, reminderID, model.StatusActedOn, "acted_on_at", now)
}

func (e *Engine) transition(ctx context.Context, reminderID string, target model.ReminderStatus, stampColumn string, now time.Time) error {
	var reminder model.Reminder
	err := e.db.WithContext(ctx).First(&reminder, "id = ?", reminderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReminderNotFound
	}
	if err != nil {
		return fmt.Errorf("load reminder %s: %w", reminderID, err)
	}
	if reminder.Status.Terminal() {
		return nil
	}

	// Guarded update: only a still-pending row moves, so two racing
	// transitions produce exactly one stamp.
	result := e.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ? AND status = ?", reminderID, model.StatusPending).
		Updates(map[string]interface{}{
			"status":    target,
			stampColumn: now,
		})
	if result.Error != nil {
		return fmt.Errorf("transition reminder %s to %s: %w", reminderID, target, result.Error)
	}
	return nil
}

// PendingForUser returns the user's pending reminders, soonest scheduled
// first. The conversational reply handler uses this set to resolve short
// replies like "done" or a contact's first name.
func (e *Engine) PendingForUser(ctx context.Context, userID string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.StatusPending).
		Order("scheduled_for ASC, created_at ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("pending reminders for %s: %w", userID, err)
	}
	return reminders, nil
}
