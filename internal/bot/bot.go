package bot

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/adpatel/circleback/internal/config"
	"github.com/adpatel/circleback/internal/model"
	"github.com/adpatel/circleback/internal/nudge"
	myopenai "github.com/adpatel/circleback/internal/openai"
	"github.com/adpatel/circleback/internal/twilio"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Cron schedules. Generation runs before the delivery cutoff hour so fresh
// nudges land in the same day's window; delivery sweeps for due reminders
// every ten minutes.
const (
	cronPaidGeneration = "0 5 * * *"
	cronFreeGeneration = "0 5 * * 1"
	cronDelivery       = "*/10 * * * *"
)

// Bot wires the nudge engine, delivery worker and inbound reply handling to
// the cron triggers and the Twilio webhook.
type Bot struct {
	cfg    *config.Config
	db     *gorm.DB
	engine *nudge.Engine
	worker *nudge.Worker
	openAI *myopenai.Client
	cron   *cron.Cron
	logger *log.Logger
}

// New creates a fully configured Bot instance.
func New(cfg *config.Config, db *gorm.DB, engine *nudge.Engine, worker *nudge.Worker, openAI *myopenai.Client, logger *log.Logger) *Bot {
	c := cron.New(cron.WithLocation(cfg.LocalTimezone))
	return &Bot{
		cfg:    cfg,
		db:     db,
		engine: engine,
		worker: worker,
		openAI: openAI,
		cron:   c,
		logger: logger,
	}
}

// StartScheduler registers the generation and delivery jobs and starts the
// scheduler loop.
func (b *Bot) StartScheduler() error {
	if _, err := b.cron.AddFunc(cronPaidGeneration, func() {
		b.runGeneration(model.PlanPro)
	}); err != nil {
		return err
	}
	if _, err := b.cron.AddFunc(cronFreeGeneration, func() {
		b.runGeneration(model.PlanFree)
	}); err != nil {
		return err
	}
	if _, err := b.cron.AddFunc(cronDelivery, func() {
		b.runDelivery()
	}); err != nil {
		return err
	}
	b.cron.Start()
	return nil
}

// StopScheduler stops the cron scheduler gracefully.
func (b *Bot) StopScheduler() {
	ctx := b.cron.Stop()
	<-ctx.Done()
}

// runGeneration sweeps every user on the given plan. One user's failure is
// logged and never aborts the rest of the sweep.
func (b *Bot) runGeneration(plan model.Plan) {
	ctx := context.Background()
	now := time.Now()

	var users []model.User
	if err := b.db.Where("plan = ?", plan).Find(&users).Error; err != nil {
		b.logger.Printf("generation sweep (%s): fetch users: %v", plan, err)
		return
	}

	for _, user := range users {
		mode := nudge.ModeForPlan(user.Plan)
		result, err := b.engine.Generate(ctx, user.ID, mode, 0, now)
		if err != nil {
			b.logger.Printf("generation: user %s: %v", user.ID, err)
			continue
		}
		if result.Created > 0 || result.Skipped > 0 {
			b.logger.Printf("generation: user %s: considered=%d created=%d skipped=%d",
				user.ID, result.Considered, result.Created, result.Skipped)
		}
	}
}

func (b *Bot) runDelivery() {
	result, err := b.worker.RunDelivery(context.Background(), time.Now())
	if err != nil {
		b.logger.Printf("delivery run: %v", err)
		return
	}
	if result.Due > 0 {
		b.logger.Printf("delivery: due=%d sent=%d failed=%d skipped=%d",
			result.Due, result.Sent, result.Failed, result.Skipped)
	}
}

// Handler returns the HTTP handler for incoming Twilio messages.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleIncomingMessage
}

// handleIncomingMessage processes Twilio webhook POST requests carrying a
// user's short reply to a nudge.
func (b *Bot) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		b.logger.Printf("webhook: parse error: %v", err)
		b.writeTwilioResponse(w, "Sorry, I couldn't understand that request.")
		return
	}

	from := r.FormValue("From")
	body := strings.TrimSpace(r.FormValue("Body"))
	if from == "" || body == "" {
		b.writeTwilioResponse(w, "I need a message to work with. Please try again.")
		return
	}

	phone := twilio.SanitizeInbound(from)
	var user model.User
	err := b.db.First(&user, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		b.writeTwilioResponse(w, "I don't recognise this number yet.")
		return
	}
	if err != nil {
		b.logger.Printf("webhook: lookup user %s: %v", phone, err)
		b.writeTwilioResponse(w, "Something went wrong on my end. Please try again later.")
		return
	}

	intent := b.determineIntent(r.Context(), body)
	switch intent {
	case myopenai.IntentList:
		b.writeTwilioResponse(w, b.listPending(r.Context(), user.ID))
	case myopenai.IntentActed, myopenai.IntentDismiss:
		b.resolveReply(r.Context(), w, user.ID, body, intent)
	default:
		b.writeTwilioResponse(w, helpResponse())
	}
}

// determineIntent tries cheap keyword matching first and only then asks the
// language model, mirroring how the engine treats the model as optional.
func (b *Bot) determineIntent(ctx context.Context, body string) myopenai.Intent {
	lower := strings.ToLower(body)
	switch {
	case isListRequest(lower):
		return myopenai.IntentList
	case isActedRequest(lower):
		return myopenai.IntentActed
	case isDismissRequest(lower):
		return myopenai.IntentDismiss
	case strings.Contains(lower, "help"):
		return myopenai.IntentHelp
	}

	intent, err := b.openAI.ClassifyReply(ctx, body)
	if err != nil {
		if !errors.Is(err, myopenai.ErrClientNotInitialised) {
			b.logger.Printf("reply classification error: %v", err)
		}
		return myopenai.IntentUnknown
	}
	return intent
}

// resolveReply finds which pending nudge the reply refers to and applies the
// transition. A contact's name in the reply picks that nudge; otherwise the
// soonest-scheduled one is assumed.
func (b *Bot) resolveReply(ctx context.Context, w http.ResponseWriter, userID, body string, intent myopenai.Intent) {
	reminder, name, err := b.matchReminder(ctx, userID, body)
	if err != nil {
		b.logger.Printf("webhook: match reminder: %v", err)
		b.writeTwilioResponse(w, "Something went wrong on my end. Please try again later.")
		return
	}
	if reminder == nil {
		b.writeTwilioResponse(w, "There's nothing waiting on you right now. Nice.")
		return
	}

	now := time.Now()
	if intent == myopenai.IntentActed {
		err = b.engine.ActOn(ctx, reminder.ID, now)
	} else {
		err = b.engine.Dismiss(ctx, reminder.ID, now)
	}
	if err != nil {
		b.logger.Printf("webhook: transition reminder %s: %v", reminder.ID, err)
		b.writeTwilioResponse(w, "I couldn't update that reminder. Please try again.")
		return
	}

	if intent == myopenai.IntentActed {
		b.writeTwilioResponse(w, fmt.Sprintf("Love it — marked %s as done.", name))
	} else {
		b.writeTwilioResponse(w, fmt.Sprintf("No problem, I'll stop nagging you about %s for now.", name))
	}
}

// matchReminder resolves a reply against the user's pending set. Returns the
// matched reminder and the contact name for the response copy, or nil when
// nothing is pending.
func (b *Bot) matchReminder(ctx context.Context, userID, body string) (*model.Reminder, string, error) {
	pending, err := b.engine.PendingForUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if len(pending) == 0 {
		return nil, "", nil
	}

	names, err := b.contactNames(ctx, pending)
	if err != nil {
		return nil, "", err
	}

	lower := strings.ToLower(body)
	for i := range pending {
		name := names[pending[i].ContactID]
		if name == "" {
			continue
		}
		first := strings.ToLower(strings.Fields(name)[0])
		if strings.Contains(lower, first) {
			return &pending[i], name, nil
		}
	}
	return &pending[0], names[pending[0].ContactID], nil
}

func (b *Bot) contactNames(ctx context.Context, reminders []model.Reminder) (map[string]string, error) {
	ids := make([]string, 0, len(reminders))
	for _, r := range reminders {
		ids = append(ids, r.ContactID)
	}

	var contacts []model.Contact
	if err := b.db.WithContext(ctx).Where("id IN ?", ids).Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
	}
	return names, nil
}

// listPending returns a human-readable list of the user's pending nudges.
func (b *Bot) listPending(ctx context.Context, userID string) string {
	pending, err := b.engine.PendingForUser(ctx, userID)
	if err != nil {
		b.logger.Printf("list pending: %v", err)
		return "I couldn't fetch your reminders just now. Please try again."
	}
	if len(pending) == 0 {
		return "Nothing pending — all your relationships look healthy."
	}

	names, err := b.contactNames(ctx, pending)
	if err != nil {
		b.logger.Printf("list pending: %v", err)
		return "I couldn't fetch your reminders just now. Please try again."
	}

	var sb strings.Builder
	sb.WriteString("Waiting on you:\n")
	for i, r := range pending {
		name := names[r.ContactID]
		if name == "" {
			name = "someone you know"
		}
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n", i+1, name, r.Reason))
	}
	return sb.String()
}

func (b *Bot) writeTwilioResponse(w http.ResponseWriter, message string) {
	twiml := struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message"`
	}{
		Message: message,
	}

	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(twiml); err != nil {
		b.logger.Printf("twilio response encode: %v", err)
	}
}

func isListRequest(body string) bool {
	return strings.Contains(body, "list") ||
		strings.Contains(body, "show") ||
		strings.Contains(body, "pending") ||
		strings.Contains(body, "who's waiting")
}

func isActedRequest(body string) bool {
	return body == "yes" || body == "done" ||
		strings.Contains(body, "did it") ||
		strings.Contains(body, "done") ||
		strings.Contains(body, "called") ||
		strings.Contains(body, "texted") ||
		strings.Contains(body, "talked")
}

func isDismissRequest(body string) bool {
	return body == "no" ||
		strings.Contains(body, "skip") ||
		strings.Contains(body, "dismiss") ||
		strings.Contains(body, "not now") ||
		strings.Contains(body, "later")
}

func helpResponse() string {
	return "I nudge you when a relationship is drifting. You can reply:\n- \"done\" or \"called Maya\" when you've reached out\n- \"skip\" to wave a nudge off\n- \"list\" to see who's waiting on you"
}
