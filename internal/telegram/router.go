package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/feeding"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/store"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/timesync"
)

// Visibility tiers for registered commands.
type Visibility int

const (
	Public Visibility = iota
	Hidden
	AdminOnly
)

// HandlerFunc handles one inbound command message.
type HandlerFunc func(ctx context.Context, msg *tgbotapi.Message)

type command struct {
	handler     HandlerFunc
	description string
	visibility  Visibility
}

// Router wires Telegram updates to handlers. It keeps the command registry
// (name -> handler, description, visibility) and the per-chat waiters used
// by the ask-and-wait flow.
type Router struct {
	bot     *tgbotapi.BotAPI
	log     *zap.Logger
	repo    store.Repo
	clk     clock.Clock
	tsync   *timesync.Service
	adminID int64

	feed *feeding.Service

	mu       sync.Mutex
	commands map[string]command
	order    []string
	waiters  map[int64]chan *feeding.Reply
}

// NewRouter creates the router and populates the command registry.
// The feeding service is attached afterwards via SetFeeding: it needs the
// router as its Asker.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, clk clock.Clock, tsync *timesync.Service, adminID int64) *Router {
	r := &Router{
		bot:      bot,
		log:      log,
		repo:     repo,
		clk:      clk,
		tsync:    tsync,
		adminID:  adminID,
		commands: make(map[string]command),
		waiters:  make(map[int64]chan *feeding.Reply),
	}
	r.register("start", "Start the bot", Public, r.handleStart)
	r.register("setup", "Setup feeding schedule", Public, r.handleSetup)
	r.register("stop", "Stop all reminders", Public, r.handleStop)
	r.register("timezone", "Set your timezone", Public, r.handleTimezone)
	r.register("fed", "Register a feeding", Public, r.handleFed)
	r.register("stats", "Show your feeding statistics", Public, r.handleStats)
	r.register("full_stats", "Show detailed feeding statistics", Public, r.handleFullStats)
	r.register("partner", "Add a partner to notify", Public, r.handlePartner)
	r.register("help", "Show available commands", Public, r.handleHelp)
	r.register("list_users", "List all users", AdminOnly, r.handleListUsers)
	r.register("dbwrite", "Write test feeding record", Hidden, r.handleDBWrite)
	r.register("dbread", "Read feeding records", Hidden, r.handleDBRead)
	return r
}

// SetFeeding attaches the dialogue flow service.
func (r *Router) SetFeeding(f *feeding.Service) {
	r.feed = f
}

func (r *Router) register(name, description string, vis Visibility, h HandlerFunc) {
	r.commands[name] = command{handler: h, description: description, visibility: vis}
	r.order = append(r.order, name)
}

// HandleUpdate routes one update. The caller runs it in its own goroutine:
// ask-and-wait handlers block until the user replies or a timeout fires,
// and the reply itself arrives as a later update.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	chatID := msg.Chat.ID

	// Keep the user record fresh on every inbound message.
	if msg.From != nil {
		r.upsertUser(ctx, msg)
	}

	// A pending ask wins over command dispatch: the reply may be any
	// message, media included.
	if r.resolveWaiter(chatID, msg) {
		return
	}

	if msg.IsCommand() {
		r.mu.Lock()
		cmd, ok := r.commands[msg.Command()]
		r.mu.Unlock()
		if ok {
			cmd.handler(ctx, msg)
			return
		}
	}
	r.handleFallback(ctx, msg)
}

func (r *Router) upsertUser(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	fullName := strings.TrimSpace(from.FirstName + " " + from.LastName)
	err := r.repo.UpsertUser(ctx, &domain.User{
		UserID:   from.ID,
		Username: from.UserName,
		FullName: fullName,
	})
	if err != nil {
		r.log.Error("upsert user failed", zap.Error(err), zap.Int64("userID", from.ID))
	}
}

// resolveWaiter delivers the message to a pending ask, if any.
func (r *Router) resolveWaiter(chatID int64, msg *tgbotapi.Message) bool {
	r.mu.Lock()
	ch, ok := r.waiters[chatID]
	if ok {
		delete(r.waiters, chatID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- replyFromMessage(msg)
	return true
}

func replyFromMessage(msg *tgbotapi.Message) *feeding.Reply {
	reply := &feeding.Reply{Text: msg.Text}
	if msg.From != nil {
		reply.UserID = msg.From.ID
	}
	if reply.Text == "" {
		reply.Text = msg.Caption
	}
	if len(msg.Photo) > 0 {
		reply.PhotoID = msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Video != nil {
		reply.VideoID = msg.Video.FileID
	}
	return reply
}

// Send sends a plain text message. This makes Router satisfy feeding.Asker.
func (r *Router) Send(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Ask sends a question and blocks until the chat's next message, the
// timeout, or ctx cancellation. A timeout of zero means wait indefinitely
// (bounded by ctx). Asking again on the same chat replaces the previous
// waiter, which then times out on its own.
func (r *Router) Ask(ctx context.Context, chatID int64, question string, timeout time.Duration) (*feeding.Reply, error) {
	return r.ask(ctx, chatID, tgbotapi.NewMessage(chatID, question), timeout)
}

// AskChoice sends a question with a one-time reply keyboard of options and
// returns the raw reply text; the caller matches it against the options.
func (r *Router) AskChoice(ctx context.Context, chatID int64, question string, options []string, timeout time.Duration) (string, error) {
	msg := tgbotapi.NewMessage(chatID, question)
	msg.ReplyMarkup = choiceKeyboard(options)
	reply, err := r.ask(ctx, chatID, msg, timeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text), nil
}

func (r *Router) ask(ctx context.Context, chatID int64, msg tgbotapi.MessageConfig, timeout time.Duration) (*feeding.Reply, error) {
	ch := make(chan *feeding.Reply, 1)

	r.mu.Lock()
	if _, busy := r.waiters[chatID]; busy {
		r.log.Warn("replacing pending ask", zap.Int64("chatID", chatID))
	}
	r.waiters[chatID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.waiters[chatID] == ch {
			delete(r.waiters, chatID)
		}
		r.mu.Unlock()
	}()

	if _, err := r.bot.Send(msg); err != nil {
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timeoutCh = r.clk.After(timeout)
	}
	select {
	case reply := <-ch:
		return reply, nil
	case <-timeoutCh:
		return nil, feeding.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Router) sendText(chatID int64, text string) {
	if err := r.Send(chatID, text); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}
