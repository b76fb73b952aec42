package nudge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/adpatel/circleback/internal/model"
	"gorm.io/gorm"
)

// Sender delivers one text message. It performs no retries of its own;
// a reminder left pending is picked up again by the next delivery run.
type Sender interface {
	SendSMS(to, body string) error
}

// Worker drains due pending reminders in FIFO order by scheduled time.
type Worker struct {
	db       *gorm.DB
	settings Settings
	sender   Sender
	logger   *log.Logger
}

// NewWorker creates a delivery worker.
func NewWorker(db *gorm.DB, settings Settings, sender Sender, logger *log.Logger) *Worker {
	return &Worker{
		db:       db,
		settings: settings,
		sender:   sender,
		logger:   logger,
	}
}

// DeliveryResult reports one delivery run. Failed reminders stay pending and
// reappear in the next run's due set.
type DeliveryResult struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int
}

// RunDelivery loads due pending reminders, oldest scheduled first, capped at
// the batch size, and attempts each send. One failed send never blocks the
// rest of the batch; a reminder whose owner is missing a phone number is
// skipped and logged rather than crashing the run.
func (w *Worker) RunDelivery(ctx context.Context, now time.Time) (DeliveryResult, error) {
	var due []model.Reminder
	err := w.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", model.StatusPending, now).
		Order("scheduled_for ASC").
		Limit(w.settings.DeliveryBatchSize).
		Find(&due).Error
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("load due reminders: %w", err)
	}

	res := DeliveryResult{Due: len(due)}
	phones := make(map[string]string, len(due))

	for _, reminder := range due {
		phone, ok := phones[reminder.UserID]
		if !ok {
			phone, err = w.userPhone(ctx, reminder.UserID)
			if err != nil {
				w.logger.Printf("delivery: reminder %s: %v", reminder.ID, err)
				res.Skipped++
				continue
			}
			phones[reminder.UserID] = phone
		}
		if phone == "" {
			w.logger.Printf("delivery: reminder %s: user %s has no phone", reminder.ID, reminder.UserID)
			res.Skipped++
			continue
		}

		if err := w.sender.SendSMS(phone, reminder.Message); err != nil {
			// Stays pending; the next run retries it.
			w.logger.Printf("delivery: reminder %s send failed: %v", reminder.ID, err)
			res.Failed++
			continue
		}

		if err := w.markDelivered(ctx, reminder.ID, now); err != nil {
			w.logger.Printf("delivery: reminder %s: %v", reminder.ID, err)
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res, nil
}

// markDelivered advances a reminder to delivered, but only from pending, so
// a transition raced by another run is a no-op rather than a double stamp.
func (w *Worker) markDelivered(ctx context.Context, reminderID string, now time.Time) error {
	result := w.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ? AND status = ?", reminderID, model.StatusPending).
		Updates(map[string]interface{}{
			"status":       model.StatusDelivered,
			"delivered_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("mark delivered: %w", result.Error)
	}
	return nil
}

func (w *Worker) userPhone(ctx context.Context, userID string) (string, error) {
	var user model.User
	err := w.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("user %s not found", userID)
	}
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	return user.Phone, nil
}
