package nudge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/adpatel/circleback/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// flakySender fails on the listed call numbers (1-based) and records sends.
type flakySender struct {
	calls  int
	failOn map[int]bool
	sentTo []string
	bodies []string
}

func (f *flakySender) SendSMS(to, body string) error {
	f.calls++
	if f.failOn[f.calls] {
		return errors.New("provider rejected send")
	}
	f.sentTo = append(f.sentTo, to)
	f.bodies = append(f.bodies, body)
	return nil
}

func seedPendingReminder(t *testing.T, db *gorm.DB, userID, contactID, message string, scheduledFor time.Time) model.Reminder {
	t.Helper()
	reminder := model.Reminder{
		ID:           uuid.NewString(),
		UserID:       userID,
		ContactID:    contactID,
		Message:      message,
		Reason:       "test",
		Status:       model.StatusPending,
		ScheduledFor: scheduledFor,
	}
	if err := db.Create(&reminder).Error; err != nil {
		t.Fatalf("seed reminder: %v", err)
	}
	return reminder
}

func TestRunDeliveryFailureLeavesPending(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	user := seedUser(t, e.db, model.PlanPro)
	contact := seedContact(t, e.db, user.ID, "Maya", model.TierInner, 10)

	base := testNow.Add(-3 * time.Hour)
	first := seedPendingReminder(t, e.db, user.ID, contact.ID, "one", base)
	second := seedPendingReminder(t, e.db, user.ID, contact.ID, "two", base.Add(time.Minute))
	third := seedPendingReminder(t, e.db, user.ID, contact.ID, "three", base.Add(2*time.Minute))

	sender := &flakySender{failOn: map[int]bool{2: true}}
	worker := NewWorker(e.db, e.settings, sender, log.New(io.Discard, "", 0))

	res, err := worker.RunDelivery(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunDelivery: %v", err)
	}
	if res.Due != 3 || res.Sent != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	assertStatus(t, e.db, first.ID, model.StatusDelivered)
	assertStatus(t, e.db, second.ID, model.StatusPending)
	assertStatus(t, e.db, third.ID, model.StatusDelivered)

	// The failed reminder reappears in the next run and succeeds.
	res, err = worker.RunDelivery(context.Background(), testNow.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("second RunDelivery: %v", err)
	}
	if res.Due != 1 || res.Sent != 1 {
		t.Fatalf("retry result: %+v", res)
	}
	assertStatus(t, e.db, second.ID, model.StatusDelivered)
}

func TestRunDeliveryFIFOAndBatchCap(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	settings := e.settings
	settings.DeliveryBatchSize = 2
	user := seedUser(t, e.db, model.PlanPro)
	contact := seedContact(t, e.db, user.ID, "Ben", model.TierInner, 10)

	base := testNow.Add(-4 * time.Hour)
	for i := 0; i < 3; i++ {
		seedPendingReminder(t, e.db, user.ID, contact.ID, fmt.Sprintf("msg%d", i), base.Add(time.Duration(i)*time.Minute))
	}
	// Not yet due; must never be picked up.
	future := seedPendingReminder(t, e.db, user.ID, contact.ID, "future", testNow.Add(2*time.Hour))

	sender := &flakySender{}
	worker := NewWorker(e.db, settings, sender, log.New(io.Discard, "", 0))

	res, err := worker.RunDelivery(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunDelivery: %v", err)
	}
	if res.Due != 2 || res.Sent != 2 {
		t.Fatalf("batch cap not applied: %+v", res)
	}
	if len(sender.bodies) != 2 || sender.bodies[0] != "msg0" || sender.bodies[1] != "msg1" {
		t.Fatalf("delivery order wrong: %v", sender.bodies)
	}
	assertStatus(t, e.db, future.ID, model.StatusPending)
}

func TestRunDeliverySkipsUserWithoutPhone(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	user := seedUser(t, e.db, model.PlanPro)
	if err := e.db.Model(&user).Update("phone", "").Error; err != nil {
		t.Fatalf("clear phone: %v", err)
	}
	contact := seedContact(t, e.db, user.ID, "Cleo", model.TierInner, 10)
	reminder := seedPendingReminder(t, e.db, user.ID, contact.ID, "hello", testNow.Add(-time.Hour))

	sender := &flakySender{}
	worker := NewWorker(e.db, e.settings, sender, log.New(io.Discard, "", 0))

	res, err := worker.RunDelivery(context.Background(), testNow)
	if err != nil {
		t.Fatalf("RunDelivery: %v", err)
	}
	if res.Skipped != 1 || res.Sent != 0 {
		t.Fatalf("expected one skip, got %+v", res)
	}
	if sender.calls != 0 {
		t.Fatalf("sender was called %d times for a phoneless user", sender.calls)
	}
	assertStatus(t, e.db, reminder.ID, model.StatusPending)
}

func assertStatus(t *testing.T, db *gorm.DB, reminderID string, want model.ReminderStatus) {
	t.Helper()
	var reminder model.Reminder
	if err := db.First(&reminder, "id = ?", reminderID).Error; err != nil {
		t.Fatalf("fetch reminder %s: %v", reminderID, err)
	}
	if reminder.Status != want {
		t.Fatalf("reminder %s status = %s, want %s", reminderID, reminder.Status, want)
	}
}
