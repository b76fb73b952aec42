package nudge

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/adpatel/circleback/internal/health"
	"github.com/adpatel/circleback/internal/model"
	"gorm.io/gorm"
)

// Engine generates nudges for one user at a time and owns the reminder
// lifecycle transitions. It holds no state between runs; the store is the
// only shared resource.
type Engine struct {
	db       *gorm.DB
	settings Settings
	composer Composer
	logger   *log.Logger
}

// NewEngine creates an engine. composer may be nil; message text then comes
// from the deterministic templates.
func NewEngine(db *gorm.DB, settings Settings, composer Composer, logger *log.Logger) *Engine {
	return &Engine{
		db:       db,
		settings: settings,
		composer: composer,
		logger:   logger,
	}
}

// Candidate pairs a contact with its health assessment for ranking.
type Candidate struct {
	Contact    model.Contact
	Assessment health.Assessment
}

// SelectAttention returns up to limit contacts needing outreach, most urgent
// first. Archived contacts and the dormant/new tiers never qualify; on-track
// contacts are dropped after assessment. A user with nothing eligible gets
// an empty slice, not an error.
func (e *Engine) SelectAttention(ctx context.Context, userID string, limit int, now time.Time) ([]Candidate, error) {
	var contacts []model.Contact
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND archived = ? AND tier IN ?", userID, false, model.ActiveTiers).
		Order("last_contact_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("fetch contacts for %s: %w", userID, err)
	}

	candidates := make([]Candidate, 0, len(contacts))
	for _, c := range contacts {
		a := health.Evaluate(c, now, e.settings.Thresholds)
		if a.Status == health.StatusOnTrack {
			continue
		}
		candidates = append(candidates, Candidate{Contact: c, Assessment: a})
	}

	// Ranking contract: urgency desc, then longer elapsed, then contact ID
	// for a deterministic order under equal inputs.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Assessment.Urgency != b.Assessment.Urgency {
			return a.Assessment.Urgency > b.Assessment.Urgency
		}
		if a.Assessment.ElapsedDays != b.Assessment.ElapsedDays {
			return a.Assessment.ElapsedDays > b.Assessment.ElapsedDays
		}
		return a.Contact.ID < b.Contact.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
