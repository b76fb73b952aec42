package model

import "time"

// MetricNudgesGenerated counts reminders created per user per UTC day.
const MetricNudgesGenerated = "nudges_generated"

// UsageCounter is one row per user, UTC day and metric. Rows are created
// lazily and only ever incremented.
type UsageCounter struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"uniqueIndex:idx_usage_user_day_metric;not null"`
	Day       string    `gorm:"uniqueIndex:idx_usage_user_day_metric;not null"` // "2006-01-02" in UTC
	Metric    string    `gorm:"uniqueIndex:idx_usage_user_day_metric;not null"`
	Count     int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// UsageDay formats a timestamp as the UTC day key used by UsageCounter.
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
