package nudge

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/adpatel/circleback/internal/database"
	"github.com/adpatel/circleback/internal/model"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 15, 4, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewEngine(db, DefaultSettings(time.UTC), nil, log.New(io.Discard, "", 0))
}

func seedUser(t *testing.T, db *gorm.DB, plan model.Plan) model.User {
	t.Helper()
	user := model.User{
		ID:    uuid.NewString(),
		Phone: "+1555" + uuid.NewString()[:7],
		Name:  "Test User",
		Plan:  plan,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// seedContact creates a contact whose last interaction was elapsedDays ago.
// elapsedDays < 0 means never contacted.
func seedContact(t *testing.T, db *gorm.DB, userID, name string, tier model.Tier, elapsedDays float64) model.Contact {
	t.Helper()
	contact := model.Contact{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Tier:      tier,
		Relation:  model.RelationOther,
		CreatedAt: testNow.AddDate(-1, 0, 0),
	}
	if elapsedDays >= 0 {
		last := testNow.Add(-time.Duration(elapsedDays * 24 * float64(time.Hour)))
		contact.LastContactAt = &last
	}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatalf("seed contact %s: %v", name, err)
	}
	return contact
}

func pendingFor(t *testing.T, db *gorm.DB, userID string) []model.Reminder {
	t.Helper()
	var reminders []model.Reminder
	if err := db.Where("user_id = ? AND status = ?", userID, model.StatusPending).
		Order("created_at ASC").Find(&reminders).Error; err != nil {
		t.Fatalf("fetch pending reminders: %v", err)
	}
	return reminders
}

func TestSelectAttentionRanksByUrgency(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	user := seedUser(t, e.db, model.PlanPro)

	healthy := seedContact(t, e.db, user.ID, "Healthy", model.TierNurture, 2)
	slipping := seedContact(t, e.db, user.ID, "Slipping", model.TierNurture, 10)
	overdue := seedContact(t, e.db, user.ID, "Overdue", model.TierNurture, 20)
	seedContact(t, e.db, user.ID, "Dormant", model.TierDormant, 400)

	archived := seedContact(t, e.db, user.ID, "Archived", model.TierInner, 60)
	if err := e.db.Model(&archived).Update("archived", true).Error; err != nil {
		t.Fatalf("archive contact: %v", err)
	}

	candidates, err := e.SelectAttention(context.Background(), user.ID, 10, testNow)
	if err != nil {
		t.Fatalf("SelectAttention: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(candidates), candidates)
	}
	if candidates[0].Contact.ID != overdue.ID || candidates[1].Contact.ID != slipping.ID {
		t.Fatalf("wrong order: got %s then %s", candidates[0].Contact.Name, candidates[1].Contact.Name)
	}
	for _, cand := range candidates {
		if cand.Contact.ID == healthy.ID {
			t.Fatal("on-track contact selected")
		}
	}
}

func TestSelectAttentionLimitAndEmpty(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	user := seedUser(t, e.db, model.PlanPro)

	for i := 0; i < 6; i++ {
		seedContact(t, e.db, user.ID, fmt.Sprintf("C%d", i), model.TierNurture, 15+float64(i))
	}

	candidates, err := e.SelectAttention(context.Background(), user.ID, 4, testNow)
	if err != nil {
		t.Fatalf("SelectAttention: %v", err)
	}
	if len(candidates) != 4 {
		t.Fatalf("limit not applied: got %d", len(candidates))
	}

	other := seedUser(t, e.db, model.PlanFree)
	empty, err := e.SelectAttention(context.Background(), other.ID, 4, testNow)
	if err != nil {
		t.Fatalf("SelectAttention for empty user: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no candidates for contactless user, got %d", len(empty))
	}
}

func TestCooldownGuard(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	user := seedUser(t, e.db, model.PlanPro)
	contact := seedContact(t, e.db, user.ID, "Maya", model.TierInner, 20)

	blocked, err := e.underCooldown(e.db, user.ID, contact.ID, testNow)
	if err != nil {
		t.Fatalf("underCooldown: %v", err)
	}
	if blocked {
		t.Fatal("no reminders yet, should not be blocked")
	}

	// A pending reminder blocks regardless of age.
	pending := model.Reminder{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		ContactID:    contact.ID,
		Message:      "hi",
		Status:       model.StatusPending,
		ScheduledFor: testNow,
	}
	if err := e.db.Create(&pending).Error; err != nil {
		t.Fatalf("seed reminder: %v", err)
	}
	if blocked, _ = e.underCooldown(e.db, user.ID, contact.ID, testNow); !blocked {
		t.Fatal("pending reminder did not block")
	}

	// A recent delivery blocks, an old one does not.
	recent := testNow.Add(-12 * time.Hour)
	if err := e.db.Model(&pending).Updates(map[string]interface{}{
		"status":       model.StatusDelivered,
		"delivered_at": recent,
	}).Error; err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if blocked, _ = e.underCooldown(e.db, user.ID, contact.ID, testNow); !blocked {
		t.Fatal("delivery 12h ago did not block")
	}

	old := testNow.Add(-72 * time.Hour)
	if err := e.db.Model(&pending).Update("delivered_at", old).Error; err != nil {
		t.Fatalf("age delivery: %v", err)
	}
	if blocked, _ = e.underCooldown(e.db, user.ID, contact.ID, testNow); blocked {
		t.Fatal("delivery 72h ago should be outside the cooldown window")
	}
}
