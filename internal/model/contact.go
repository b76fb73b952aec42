package model

import "time"

// Tier buckets a relationship by how often the user wants to be in touch.
// Dormant and new contacts are parked: they are never nudge candidates.
type Tier string

const (
	TierInner         Tier = "inner"
	TierNurture       Tier = "nurture"
	TierMaintain      Tier = "maintain"
	TierTransactional Tier = "transactional"
	TierDormant       Tier = "dormant"
	TierNew           Tier = "new"
)

// ActiveTiers are the tiers eligible for attention selection.
var ActiveTiers = []Tier{TierInner, TierNurture, TierMaintain, TierTransactional}

// Relation distinguishes family from everyone else; kin get an urgency bonus.
type Relation string

const (
	RelationKin   Relation = "kin"
	RelationOther Relation = "other"
)

// Contact is a person the user wants to stay in touch with. The engine reads
// contacts but never mutates them; edits and interaction logging happen in the
// CRUD layer.
type Contact struct {
	ID                  string     `gorm:"primaryKey"`
	UserID              string     `gorm:"index;not null"`
	Name                string     `gorm:"not null"`
	Phone               string     `gorm:"type:text"`
	Tier                Tier       `gorm:"index;not null;default:new"`
	CadenceOverrideDays *int       `gorm:""`
	Relation            Relation   `gorm:"not null;default:other"`
	LastContactAt       *time.Time `gorm:""`
	Archived            bool       `gorm:"index;not null;default:false"`
	Notes               string     `gorm:"type:text"`
	CreatedAt           time.Time  `gorm:"autoCreateTime"`
}
