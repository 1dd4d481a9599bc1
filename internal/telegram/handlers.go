package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/feeding"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/scheduler"
)

const (
	// Dialogue prompts wait longer than reminder asks: the user opened
	// the conversation on purpose.
	dialogTimeout  = 5 * time.Minute
	historyLimit   = 100
	listUsersLimit = 100
)

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	name := ""
	if msg.From != nil {
		name = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	r.sendText(chatID, fmt.Sprintf(startFmt, name))

	user, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.log.Error("get user failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	if user.Timezone == "" {
		r.sendText(chatID, timezoneFirstText)
		if !r.timezoneDialog(ctx, chatID, "") {
			return
		}
	}
	r.setupDialog(ctx, msg)
}

func (r *Router) handleSetup(ctx context.Context, msg *tgbotapi.Message) {
	r.setupDialog(ctx, msg)
}

func (r *Router) setupDialog(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	options := make([]string, 0, len(domain.SetupChoices)+1)
	for _, typ := range domain.SetupChoices {
		options = append(options, string(typ))
	}
	options = append(options, cancelOption)

	choice, err := r.AskChoice(ctx, chatID, pickScheduleText, options, dialogTimeout)
	if err != nil {
		return
	}

	var typ domain.ScheduleType
	switch {
	case strings.EqualFold(choice, cancelOption) || choice == "":
		return
	case strings.EqualFold(choice, string(domain.Manual)):
		r.sendText(chatID, manualNotImplementedText)
		return
	default:
		for _, c := range domain.SetupChoices {
			if strings.EqualFold(choice, string(c)) {
				typ = c
			}
		}
		if typ == "" {
			return
		}
	}

	times, err := r.feed.ApplySchedule(ctx, chatID, typ)
	if errors.Is(err, scheduler.ErrNoTimezone) {
		r.sendText(chatID, timezoneFirstText)
		if !r.timezoneDialog(ctx, chatID, "") {
			return
		}
		times, err = r.feed.ApplySchedule(ctx, chatID, typ)
	}
	if err != nil {
		r.log.Error("apply schedule failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, scheduleFailedText)
		return
	}

	user, _ := r.repo.GetUser(ctx, chatID)
	tz := ""
	if user != nil {
		tz = user.Timezone
	}
	r.sendText(chatID, fmt.Sprintf(scheduleSetFmt, typ, tz, strings.Join(times, ", ")))

	// Preview firing: no feeding logged, no follow-up on timeout.
	r.sendText(chatID, previewIntroText)
	r.feed.RunReminder(ctx, chatID, feeding.Options{RescheduleIfMissed: false, LogFeeding: false})
}

func (r *Router) handleStop(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if err := r.feed.StopSchedule(ctx, chatID); err != nil {
		r.log.Error("stop schedule failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, scheduleFailedText)
		return
	}
	r.sendText(chatID, stoppedText)
}

// --- Timezone flow ---

func (r *Router) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	r.timezoneDialog(ctx, msg.Chat.ID, "")
}

// timezoneDialog prompts until a valid GMT±HH:MM arrives (initial, when
// non-empty, is tried first). Reports whether a timezone was stored.
func (r *Router) timezoneDialog(ctx context.Context, chatID int64, initial string) bool {
	input := initial
	for {
		if input == "" {
			reply, err := r.Ask(ctx, chatID, timezonePromptText, dialogTimeout)
			if err != nil {
				r.sendText(chatID, timezoneCancelledText)
				return false
			}
			input = strings.TrimSpace(reply.Text)
		}
		if input == "" || strings.EqualFold(input, "cancel") {
			r.sendText(chatID, timezoneCancelledText)
			return false
		}

		off, err := domain.ParseOffset(input)
		if err != nil {
			r.sendText(chatID, timezoneInvalidText)
			input = ""
			continue
		}

		canonical := off.String()
		if err := r.repo.SetUserTimezone(ctx, chatID, canonical); err != nil {
			r.log.Error("set timezone failed", zap.Error(err), zap.Int64("chatID", chatID))
			r.sendText(chatID, timezoneSaveFailedText)
			return false
		}

		local := domain.ToLocal(r.tsync.Now(), canonical)
		r.sendText(chatID, fmt.Sprintf(timezoneSetFmt, canonical, local.Format("15:04")))
		return true
	}
}

// --- Feeding commands ---

func (r *Router) handleFed(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text, err := r.feed.RegisterFeeding(ctx, chatID, replyFromMessage(msg), true)
	if err != nil {
		r.log.Error("register feeding failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	r.sendText(chatID, text)
}

// --- Stats ---

func (r *Router) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	tz := r.userTimezone(ctx, chatID)

	feedings, err := r.repo.QueryFeedings(ctx, chatID, nil, nil, historyLimit)
	if err != nil {
		r.log.Error("query feedings failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, statsFailedText)
		return
	}

	nowLocal := domain.ToLocal(r.tsync.Now(), tz)
	todayStart := truncateToDay(nowLocal)
	weekStart := todayStart.AddDate(0, 0, -mondayIndex(nowLocal))

	var today, week, photos, videos int
	for _, f := range feedings {
		local := domain.ToLocal(f.Timestamp, tz)
		if !local.Before(todayStart) {
			today++
		}
		if !local.Before(weekStart) {
			week++
		}
		if f.PhotoID != "" {
			photos++
		}
		if f.VideoID != "" {
			videos++
		}
	}

	r.sendText(chatID, fmt.Sprintf(statsFmt, today, week, len(feedings), photos, videos))
}

func (r *Router) handleFullStats(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	tz := r.userTimezone(ctx, chatID)

	feedings, err := r.repo.QueryFeedings(ctx, chatID, nil, nil, historyLimit)
	if err != nil {
		r.log.Error("query feedings failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, statsFailedText)
		return
	}
	if len(feedings) == 0 {
		r.sendText(chatID, noHistoryText)
		return
	}

	var b strings.Builder
	b.WriteString("📊 Detailed Feeding Statistics\n\n")

	b.WriteString("Recent Feedings:\n")
	recent := feedings
	if len(recent) > 5 {
		recent = recent[:5]
	}
	for _, f := range recent {
		local := domain.ToLocal(f.Timestamp, tz)
		media := ""
		if f.PhotoID != "" {
			media = " 📷"
		} else if f.VideoID != "" {
			media = " 🎥"
		}
		fmt.Fprintf(&b, "- %s%s\n", local.Format("2006-01-02 15:04"), media)
	}

	b.WriteString("\nDaily Summary (Last 7 days):\n")
	nowLocal := domain.ToLocal(r.tsync.Now(), tz)
	for i := 0; i < 7; i++ {
		dayStart := truncateToDay(nowLocal.AddDate(0, 0, -i))
		dayEnd := dayStart.AddDate(0, 0, 1)
		count := 0
		for _, f := range feedings {
			local := domain.ToLocal(f.Timestamp, tz)
			if !local.Before(dayStart) && local.Before(dayEnd) {
				count++
			}
		}
		name := dayStart.Weekday().String()
		if i == 0 {
			name = "Today"
		} else if i == 1 {
			name = "Yesterday"
		}
		fmt.Fprintf(&b, "- %s: %d feedings\n", name, count)
	}

	if sch, err := r.repo.GetSchedule(ctx, chatID); err == nil {
		fmt.Fprintf(&b, "\nCurrent Schedule: %s\n", sch.Type)
		if len(sch.Times) > 0 {
			fmt.Fprintf(&b, "Times: %s\n", strings.Join(sch.Times, ", "))
		}
	}

	r.sendText(chatID, b.String())
}

func (r *Router) userTimezone(ctx context.Context, chatID int64) string {
	user, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		return ""
	}
	return user.Timezone
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// mondayIndex returns days elapsed since Monday (Monday=0 .. Sunday=6).
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// --- Partners ---

func (r *Router) handlePartner(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	reply, err := r.Ask(ctx, chatID, partnerPromptText, dialogTimeout)
	if err != nil {
		r.sendText(chatID, partnerCancelledText)
		return
	}
	partnerID, err := strconv.ParseInt(strings.TrimSpace(reply.Text), 10, 64)
	if err != nil {
		r.sendText(chatID, partnerInvalidText)
		return
	}
	if err := r.repo.AddPartner(ctx, chatID, partnerID); err != nil {
		r.log.Error("add partner failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, partnerFailedText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(partnerAddedFmt, partnerID))
}

// --- Help ---

func (r *Router) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	isAdmin := msg.From != nil && r.adminID != 0 && msg.From.ID == r.adminID

	var b strings.Builder
	b.WriteString("🐱 Cat Feeding Bot Commands\n\nMain Commands:\n")
	r.mu.Lock()
	for _, name := range r.order {
		if cmd := r.commands[name]; cmd.visibility == Public {
			fmt.Fprintf(&b, "/%s - %s\n", name, cmd.description)
		}
	}
	b.WriteString("\nHidden Commands:\n")
	for _, name := range r.order {
		cmd := r.commands[name]
		if cmd.visibility == Hidden || (isAdmin && cmd.visibility == AdminOnly) {
			fmt.Fprintf(&b, "/%s - %s\n", name, cmd.description)
		}
	}
	r.mu.Unlock()

	r.sendText(chatID, b.String())
}

// --- Admin / dev commands ---

func (r *Router) handleListUsers(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.From == nil || r.adminID == 0 || msg.From.ID != r.adminID {
		r.sendText(chatID, notAuthorizedText)
		return
	}
	users, err := r.repo.ListUsers(ctx, listUsersLimit)
	if err != nil {
		r.log.Error("list users failed", zap.Error(err))
		r.sendText(chatID, "Could not list users.")
		return
	}
	var b strings.Builder
	b.WriteString("Users:\n")
	for _, u := range users {
		fmt.Fprintf(&b, "@%s (%d) - %s\n", u.Username, u.UserID, u.FullName)
	}
	r.sendText(chatID, b.String())
}

func (r *Router) handleDBWrite(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	_, err := r.repo.InsertFeeding(ctx, &domain.Feeding{
		UserID:       chatID,
		Timestamp:    r.clk.Now().UTC(),
		ScheduleType: domain.ScheduleType("test"),
	})
	if err != nil {
		r.log.Error("test write failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "Test write failed.")
		return
	}
	r.sendText(chatID, "Test feeding record written to database!")
}

func (r *Router) handleDBRead(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	feedings, err := r.repo.QueryFeedings(ctx, chatID, nil, nil, historyLimit)
	if err != nil {
		r.log.Error("test read failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "Test read failed.")
		return
	}
	if len(feedings) == 0 {
		r.sendText(chatID, "No feeding records found!")
		return
	}
	var b strings.Builder
	b.WriteString("Your feeding records:\n\n")
	for _, f := range feedings {
		fmt.Fprintf(&b, "Time: %s\n", f.Timestamp.Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "Schedule: %s\n", f.ScheduleType)
		if f.PhotoID != "" {
			b.WriteString("📸 With photo\n")
		}
		b.WriteString("\n")
	}
	r.sendText(chatID, b.String())
}

// --- Fallback for non-command chatter ---

func (r *Router) handleFallback(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		return
	}
	// A bare timezone pasted into the chat still works.
	if msg.Text != "" && strings.Contains(strings.ToLower(msg.Text), "gmt") {
		r.timezoneDialog(ctx, msg.Chat.ID, msg.Text)
		return
	}
	r.sendText(msg.Chat.ID, casualChatText)
}
