package nudge

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/adpatel/circleback/internal/health"
	"github.com/adpatel/circleback/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mode selects how a generation run packages its nudges.
type Mode string

const (
	// ModeIndividual creates one reminder per surviving contact (paid plans).
	ModeIndividual Mode = "individual"
	// ModeDigest folds the top contacts into a single reminder (free plan).
	ModeDigest Mode = "digest"
)

// ModeForPlan maps a subscription plan to its generation mode.
func ModeForPlan(plan model.Plan) Mode {
	if plan == model.PlanFree {
		return ModeDigest
	}
	return ModeIndividual
}

// Composer phrases a nudge message. The engine works without one; templates
// keyed by health status are the deterministic fallback.
type Composer interface {
	ComposeNudge(ctx context.Context, contactName string, status health.Status, reason string) (string, error)
}

// Result reports what a generation run did. Skipped counts cooldown
// rejections, which are expected outcomes rather than errors.
type Result struct {
	Considered int
	Created    int
	Skipped    int
}

// Generate runs one quota-aware generation pass for a user. capOverride <= 0
// means the mode's default cap. Zero eligible candidates is the common
// "all relationships healthy" case and yields an empty Result with nil error.
func (e *Engine) Generate(ctx context.Context, userID string, mode Mode, capOverride int, now time.Time) (Result, error) {
	quota := capOverride
	if quota <= 0 {
		if mode == ModeDigest {
			quota = e.settings.DigestCap
		} else {
			quota = e.settings.IndividualCap
		}
	}

	// Overfetch so cooldown filtering still leaves enough to fill the cap.
	candidates, err := e.SelectAttention(ctx, userID, 2*quota, now)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		return Result{}, nil
	}

	var res Result
	accepted := make([]Candidate, 0, quota)
	db := e.db.WithContext(ctx)

	for _, cand := range candidates {
		if len(accepted) >= quota {
			break
		}
		res.Considered++
		blocked, err := e.underCooldown(db, userID, cand.Contact.ID, now)
		if err != nil {
			return res, err
		}
		if blocked {
			res.Skipped++
			continue
		}
		accepted = append(accepted, cand)
	}
	if len(accepted) == 0 {
		return res, nil
	}

	scheduledFor := e.settings.NextWindow(now)

	switch mode {
	case ModeDigest:
		created, err := e.createDigest(ctx, userID, accepted, scheduledFor, now)
		if err != nil {
			return res, err
		}
		res.Created = created
	default:
		for _, cand := range accepted {
			created, err := e.createIndividual(ctx, userID, cand, scheduledFor, now)
			if err != nil {
				return res, err
			}
			if created {
				res.Created++
			} else {
				res.Skipped++
			}
		}
	}

	if res.Created > 0 {
		increment := res.Created
		if mode == ModeDigest {
			increment = 1
		}
		if err := e.recordUsage(ctx, userID, increment, now); err != nil {
			return res, err
		}
	}
	return res, nil
}

// createIndividual inserts one reminder for the candidate. The cooldown
// guard is re-run inside the transaction so a concurrent run that already
// inserted for this contact turns this attempt into a silent skip instead
// of a duplicate pending row.
func (e *Engine) createIndividual(ctx context.Context, userID string, cand Candidate, scheduledFor, now time.Time) (bool, error) {
	reason := describeReason(cand.Assessment)
	message := e.composeMessage(ctx, cand.Contact.Name, cand.Assessment, reason)

	created := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocked, err := e.underCooldown(tx, userID, cand.Contact.ID, now)
		if err != nil {
			return err
		}
		if blocked {
			return nil
		}
		reminder := &model.Reminder{
			ID:           uuid.NewString(),
			UserID:       userID,
			ContactID:    cand.Contact.ID,
			Message:      message,
			Reason:       reason,
			Status:       model.StatusPending,
			ScheduledFor: scheduledFor,
		}
		if err := tx.Create(reminder).Error; err != nil {
			return fmt.Errorf("create reminder for contact %s: %w", cand.Contact.ID, err)
		}
		created = true
		return nil
	})
	return created, err
}

// createDigest inserts a single reminder anchored to the highest-urgency
// contact, enumerating every accepted name in the body. Returns the number
// of reminders created (0 or 1).
func (e *Engine) createDigest(ctx context.Context, userID string, accepted []Candidate, scheduledFor, now time.Time) (int, error) {
	anchor := accepted[0]
	names := make([]string, 0, len(accepted))
	for _, cand := range accepted {
		names = append(names, cand.Contact.Name)
	}
	message := digestMessage(names)
	reason := fmt.Sprintf("digest: %d relationships need attention", len(names))

	created := 0
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocked, err := e.underCooldown(tx, userID, anchor.Contact.ID, now)
		if err != nil {
			return err
		}
		if blocked {
			return nil
		}
		reminder := &model.Reminder{
			ID:           uuid.NewString(),
			UserID:       userID,
			ContactID:    anchor.Contact.ID,
			Message:      message,
			Reason:       reason,
			Status:       model.StatusPending,
			ScheduledFor: scheduledFor,
		}
		if err := tx.Create(reminder).Error; err != nil {
			return fmt.Errorf("create digest reminder: %w", err)
		}
		created = 1
		return nil
	})
	return created, err
}

// recordUsage lazily creates and increments the per-day counter row.
func (e *Engine) recordUsage(ctx context.Context, userID string, n int, now time.Time) error {
	counter := &model.UsageCounter{
		UserID: userID,
		Day:    model.UsageDay(now),
		Metric: model.MetricNudgesGenerated,
		Count:  n,
	}
	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}, {Name: "metric"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count": gorm.Expr("count + ?", n),
		}),
	}).Create(counter).Error
	if err != nil {
		return fmt.Errorf("record usage for %s: %w", userID, err)
	}
	return nil
}

// composeMessage asks the composer for phrasing and falls back to the
// status-keyed templates when the composer is absent or fails.
func (e *Engine) composeMessage(ctx context.Context, name string, a health.Assessment, reason string) string {
	if e.composer != nil {
		message, err := e.composer.ComposeNudge(ctx, name, a.Status, reason)
		if err == nil && strings.TrimSpace(message) != "" {
			return message
		}
		if err != nil {
			e.logger.Printf("composer fallback for %s: %v", name, err)
		}
	}
	return fallbackMessage(name, a)
}

func fallbackMessage(name string, a health.Assessment) string {
	switch a.Status {
	case health.StatusOverdue:
		return fmt.Sprintf("It's been over %d days since you last reached out to %s. A quick text could go a long way.", roundDays(a.ElapsedDays), name)
	case health.StatusSlipping:
		return fmt.Sprintf("You usually catch up with %s every %d days — it's been %d. Maybe say hi?", name, a.CadenceDays, roundDays(a.ElapsedDays))
	default:
		return fmt.Sprintf("Take a moment to check in with %s today.", name)
	}
}

func digestMessage(names []string) string {
	switch len(names) {
	case 1:
		return fmt.Sprintf("Time to circle back: %s is waiting to hear from you.", names[0])
	default:
		head := strings.Join(names[:len(names)-1], ", ")
		return fmt.Sprintf("Time to circle back: %s and %s are waiting to hear from you.", head, names[len(names)-1])
	}
}

func describeReason(a health.Assessment) string {
	return fmt.Sprintf("%s: %d days since last contact (cadence %d)",
		a.Status, roundDays(a.ElapsedDays), a.CadenceDays)
}

// roundDays rounds for display only; ranking keeps the fractional value.
func roundDays(days float64) int {
	return int(math.Round(days))
}
