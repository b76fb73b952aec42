package nudge

import (
	"fmt"
	"time"

	"github.com/adpatel/circleback/internal/model"
	"gorm.io/gorm"
)

// underCooldown reports whether a new reminder for (user, contact) is
// blocked: either a pending reminder already exists, or one was delivered
// inside the cooldown window. It queries through tx so the generator can
// re-evaluate the guard inside the insert transaction, which closes the
// race between two overlapping generation runs for the same user.
func (e *Engine) underCooldown(tx *gorm.DB, userID, contactID string, now time.Time) (bool, error) {
	var count int64
	cutoff := now.Add(-e.settings.Cooldown())
	err := tx.Model(&model.Reminder{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Where("status = ? OR (status = ? AND delivered_at > ?)",
			model.StatusPending, model.StatusDelivered, cutoff).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("cooldown check for contact %s: %w", contactID, err)
	}
	return count > 0, nil
}
