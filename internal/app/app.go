package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/orderbot/core/bootstrap"
	coreconfig "github.com/m3rciful/orderbot/core/config"
	"github.com/m3rciful/orderbot/core/logger"
	"github.com/m3rciful/orderbot/core/metrics"
	tg "github.com/m3rciful/orderbot/core/telegram"
	tgsender "github.com/m3rciful/orderbot/core/telegram/sender"
	"github.com/m3rciful/orderbot/internal/bot"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/httpapi"
	"github.com/m3rciful/orderbot/internal/journal"
	"github.com/m3rciful/orderbot/internal/marks"
	"github.com/m3rciful/orderbot/internal/notify"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

// App owns the long-lived components shared by every handler.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	catalog  *catalog.FileStore
	journal  *journal.Recorder
	registry *tg.Registry
	metrics  *prometheus.Registry

	// routesErr is set when handler registration fails inside Routes and
	// surfaces from OnStart.
	routesErr  error
	stopServer context.CancelFunc
	serverDone chan error
}

// Bootstrap initializes logging, the optional journal database and the
// catalog store.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:        cfg.CoreConfig(),
		Database:      cfg.DatabaseSettings(),
		MigrationsDir: cfg.Database.MigrationsDir,
	})
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, res.DB), nil
}

func newApp(ctx context.Context, cfg *Config, db *sqlx.DB) *App {
	a := &App{
		cfg:      cfg,
		db:       db,
		catalog:  catalog.NewFileStore(cfg.Catalog.Dir),
		registry: tg.NewRegistry(),
		metrics:  metrics.Registry,
	}
	if db != nil {
		a.journal = journal.NewRecorder(journal.NewRepository(db), cfg.Database.JournalBuffer)
	}
	logger.Info(ctx, logger.ComponentApp, "bootstrap",
		slog.String("data_dir", cfg.Catalog.Dir),
		slog.Int64("group_chat_id", cfg.Orders.GroupChatID),
		slog.Bool("journal", a.journal != nil),
	)
	return a
}

// TelegramRunOptions describes how the runtime should run the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:            core,
		Registry:          a.registry,
		DispatcherOptions: tgsender.OptionsFromConfig(core.Sender),
		Middlewares:       tg.DefaultMiddlewares(core, nil),
		Routes:            a.routes,
		OnStart:           a.onStart,
		OnStop:            a.onStop,
	}, nil
}

// Handlers builds the services on top of api and returns the bot handlers.
func (a *App) Handlers(api notify.API, files bot.FileFetcher, username string) *bot.Handlers {
	msg := notify.NewTelegram(api, a.cfg.Orders.GroupChatID)
	threads := a.cfg.Orders.Threads

	var rec pipeline.Recorder
	if a.journal != nil {
		rec = a.journal
	}
	orders := pipeline.NewService(pipeline.Options{
		Catalog:          a.catalog,
		Messenger:        msg,
		Threads:          threads,
		KitchenThreshold: a.cfg.Orders.KitchenCategoryLimit,
		Journal:          rec,
		Metrics:          pipeline.NewMetrics(a.metrics),
	})
	bulk := marks.NewService(marks.Options{
		Suppliers: a.catalog,
		Messenger: msg,
		Threads:   threads,
		Registry:  a.metrics,
	})
	return bot.New(bot.Options{
		Catalog:          a.catalog,
		Pipeline:         orders,
		Marks:            bulk,
		Messenger:        msg,
		Threads:          threads,
		GroupChatID:      a.cfg.Orders.GroupChatID,
		Files:            files,
		AdminID:          a.cfg.Telegram.AdminID,
		KitchenThreshold: a.cfg.Orders.KitchenCategoryLimit,
		Subcategories:    a.cfg.Orders.Subcategories,
		BotUsername:      username,
	})
}

func (a *App) routes(rt tg.Runtime) []tg.Route {
	var username string
	if rt.Bot.Me != nil {
		username = rt.Bot.Me.Username
	}
	h := a.Handlers(rt.Bot, rt.Bot, username)
	if err := h.Register(rt.Registry); err != nil {
		a.routesErr = fmt.Errorf("app: register handlers: %w", err)
		return nil
	}
	return h.Routes(rt.Registry)
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if a.routesErr != nil {
		return a.routesErr
	}
	core := a.cfg.CoreConfig()
	if core.Telegram.RunMode != coreconfig.RunModeWebhook {
		return nil
	}

	router := httpapi.NewRouter(httpapi.Options{
		Path:        core.Webhook.Path,
		SecretToken: core.Webhook.SecretToken,
		Bot:         rt.Bot,
		Failures:    rt.Failures,
		Gatherer:    a.metrics,
	})
	srv := httpapi.NewServer(core.ListenAddr(), router)
	srvCtx, cancel := context.WithCancel(ctx)
	a.stopServer = cancel
	a.serverDone = make(chan error, 1)
	go func() {
		a.serverDone <- srv.Run(srvCtx)
	}()

	return tg.RegisterWebhook(ctx, rt.Bot, tg.WebhookRegistration{
		PublicURL:   core.PublicWebhookURL(),
		SecretToken: core.Webhook.SecretToken,
	})
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	var errs []error
	if a.serverDone != nil {
		a.stopServer()
		select {
		case err := <-a.serverDone:
			errs = append(errs, err)
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("app: http server shutdown: %w", ctx.Err()))
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		start := time.Now()
		err := a.db.Close()
		logger.Info(ctx, logger.ComponentDB, "db.close",
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
