package model

import "time"

// ReminderStatus is the lifecycle state of a nudge. Pending is the only
// non-terminal state; a pending reminder is its own retry queue entry, so a
// failed send simply stays pending for the next delivery run.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "pending"
	StatusDelivered ReminderStatus = "delivered"
	StatusDismissed ReminderStatus = "dismissed"
	StatusActedOn   ReminderStatus = "acted_on"
)

// Terminal reports whether the status accepts no further transitions.
func (s ReminderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusDismissed || s == StatusActedOn
}

// Reminder is a scheduled nudge to reach out to a contact. Digest reminders
// anchor the highest-urgency contact and enumerate the rest in the message
// body. Only Status and the matching timestamp are ever mutated; reminders
// are never deleted by the engine.
type Reminder struct {
	ID           string         `gorm:"primaryKey"`
	UserID       string         `gorm:"index;not null"`
	ContactID    string         `gorm:"index;not null"`
	Message      string         `gorm:"type:text;not null"`
	Reason       string         `gorm:"type:text"`
	Status       ReminderStatus `gorm:"index;not null;default:pending"`
	ScheduledFor time.Time      `gorm:"index;not null"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	DeliveredAt  *time.Time     `gorm:""`
	DismissedAt  *time.Time     `gorm:""`
	ActedOnAt    *time.Time     `gorm:""`
}
