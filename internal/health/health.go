package health

import (
	"time"

	"github.com/adpatel/circleback/internal/model"
)

// Status is the three-level relationship health derived from elapsed time
// since last contact versus the expected cadence.
type Status string

const (
	StatusOnTrack  Status = "on_track"
	StatusSlipping Status = "slipping"
	StatusOverdue  Status = "overdue"
)

// Thresholds are the tunable knobs of the cadence model. Tests construct
// their own; production uses DefaultThresholds.
type Thresholds struct {
	// OverdueMultiplier separates slipping from overdue: a contact is
	// slipping while elapsed <= multiplier * cadence and overdue beyond.
	OverdueMultiplier float64
	// GraceDays extends the cadence for never-contacted contacts so a
	// brand-new entry is not flagged immediately.
	GraceDays int
	// FallbackCadenceDays applies when the tier is unknown.
	FallbackCadenceDays int
}

// DefaultThresholds returns the shipped tuning: overdue past twice the
// cadence, three grace days, 14-day fallback cadence.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OverdueMultiplier:   2.0,
		GraceDays:           3,
		FallbackCadenceDays: 14,
	}
}

// tierCadenceDays maps each active tier to its default contact interval.
var tierCadenceDays = map[model.Tier]int{
	model.TierInner:         3,
	model.TierNurture:       7,
	model.TierMaintain:      30,
	model.TierTransactional: 90,
}

// Urgency weights. These are part of the ranking contract and deliberately
// not configurable.
const (
	weightOverdue  = 10.0
	weightSlipping = 5.0
	overdueFactor  = 0.5
	kinBonus       = 2.0
)

var tierWeights = map[model.Tier]float64{
	model.TierInner:         5,
	model.TierNurture:       3,
	model.TierMaintain:      1,
	model.TierTransactional: 0,
}

// Assessment is the computed health picture for one contact at one instant.
type Assessment struct {
	CadenceDays int
	ElapsedDays float64
	Status      Status
	DaysOverdue float64
	Urgency     float64
}

// EffectiveCadence resolves the expected contact interval in days. A per-
// contact override wins over the tier default; an unknown tier falls back
// to th.FallbackCadenceDays.
func EffectiveCadence(c model.Contact, th Thresholds) int {
	if c.CadenceOverrideDays != nil && *c.CadenceOverrideDays > 0 {
		return *c.CadenceOverrideDays
	}
	if days, ok := tierCadenceDays[c.Tier]; ok {
		return days
	}
	return th.FallbackCadenceDays
}

// Evaluate computes cadence, status, days overdue and urgency for a contact.
// Never-contacted contacts measure elapsed time from creation and skip the
// slipping band: inside cadence plus grace they are on track, beyond it they
// are overdue.
func Evaluate(c model.Contact, now time.Time, th Thresholds) Assessment {
	cadence := EffectiveCadence(c, th)
	a := Assessment{CadenceDays: cadence, Status: StatusOnTrack}

	if c.LastContactAt == nil {
		a.ElapsedDays = daysBetween(c.CreatedAt, now)
		if a.ElapsedDays > float64(cadence+th.GraceDays) {
			a.Status = StatusOverdue
			a.DaysOverdue = a.ElapsedDays - float64(cadence)
		}
	} else {
		a.ElapsedDays = daysBetween(*c.LastContactAt, now)
		switch {
		case a.ElapsedDays <= float64(cadence):
			a.Status = StatusOnTrack
		case a.ElapsedDays <= th.OverdueMultiplier*float64(cadence):
			a.Status = StatusSlipping
			a.DaysOverdue = a.ElapsedDays - float64(cadence)
		default:
			a.Status = StatusOverdue
			a.DaysOverdue = a.ElapsedDays - float64(cadence)
		}
	}

	a.Urgency = urgency(a.Status, a.DaysOverdue, c)
	return a
}

// urgency combines health weight, fractional days overdue, tier weight and
// the kin bonus into one comparable score. On-track contacts score zero and
// are filtered out before ranking.
func urgency(status Status, daysOverdue float64, c model.Contact) float64 {
	var score float64
	switch status {
	case StatusOverdue:
		score = weightOverdue
	case StatusSlipping:
		score = weightSlipping
	default:
		return 0
	}
	score += overdueFactor * daysOverdue
	score += tierWeights[c.Tier]
	if c.Relation == model.RelationKin {
		score += kinBonus
	}
	return score
}

func daysBetween(from, to time.Time) float64 {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from).Hours() / 24
}
