package model

import "time"

// Plan is a user's subscription tier. It determines the generation schedule
// (daily for paid, weekly for free) and the nudge mode (individual vs digest).
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// User owns contacts, reminders and usage counters. Phone is the delivery
// channel for outbound nudges and the lookup key for inbound replies.
type User struct {
	ID        string    `gorm:"primaryKey"`
	Phone     string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"type:text"`
	Plan      Plan      `gorm:"not null;default:free"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
