package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/assets"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/config"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/feeding"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/scheduler"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/store"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/telegram"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/timesync"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	sched   *scheduler.Scheduler
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting cat-feeding-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("server_tz", timesync.ServerOffset(a.cfg.ServerTimezone)),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	clk := clock.New()
	a.sched = scheduler.New(a.log, clk)
	tsync := timesync.New(a.log, a.cfg.DisableInternetTime)
	a.router = telegram.NewRouter(a.bot, a.log, a.repo, clk, tsync, a.cfg.AdminUserID)

	responses, err := assets.FeedResponses()
	if err != nil {
		a.log.Error("load responses failed", zap.Error(err))
		return err
	}
	feedSvc := feeding.New(a.repo, a.sched, a.router, a.log, clk, responses)
	a.sched.Bind(feedSvc.FireHandler())
	a.router.SetFeeding(feedSvc)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Best effort: users with broken records keep their bot, just not
	// their reminders.
	feedSvc.Restore(ctx)
	a.sched.Start()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.httpSrv.Shutdown(shCtx); err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			a.sched.Stop(shCtx)
			cancel()

			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			// Handlers block on ask-and-wait dialogues; each update gets
			// its own goroutine so replies can still be routed.
			go a.router.HandleUpdate(ctx, upd)
		}
	}
}
