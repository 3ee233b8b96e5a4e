package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"limbobot/internal/audit"
	"limbobot/internal/bot"
	"limbobot/internal/config"
	"limbobot/internal/httpapi"
	"limbobot/internal/notify"
	"limbobot/internal/registry"
	"limbobot/internal/runtime/supervisor"
	"limbobot/internal/transport"
	"limbobot/internal/transport/telegram"
	logx "limbobot/pkg/logx"
)

const updateBuffer = 64

// App owns the full process: config, logging, roster, transport, command
// handler, ingress API and the background jobs that tie them together.
type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	reg     *registry.Registry
	trail   audit.Store
	adapter *telegram.Adapter
	handler *bot.Handler
	api     *httpapi.Server
	jobs    *cron.Cron

	sup *supervisor.Supervisor
}

func New(configPath string) *App {
	return &App{cfgm: config.NewManager(configPath)}
}

// Start brings every component up in dependency order. On error the process
// should exit; partial startups are torn down by Stop.
func (a *App) Start(ctx context.Context) error {
	cfg, err := a.cfgm.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a.logSvc, a.log = logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	})
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.log.Info("starting", logx.String("registry", cfg.Registry.Path))

	a.reg, err = registry.Open(
		registry.NewFileStore(cfg.Registry.Path),
		a.log.With(logx.String("comp", "registry")),
	)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}

	a.trail, err = audit.Open(auditConfig(cfg.Audit), a.log.With(logx.String("comp", "audit")))
	if err != nil {
		return fmt.Errorf("open audit trail: %w", err)
	}

	pollTimeout, _ := time.ParseDuration(cfg.Telegram.PollTimeout)
	a.adapter, err = telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, a.log.With(logx.String("comp", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram adapter: %w", err)
	}
	a.logSvc.SetTelegramTarget(a.adapter, cfg.Telegram.AdminChatID)

	dispatcher := notify.NewDispatcher(a.reg, a.adapter, a.trail, a.log.With(logx.String("comp", "dispatch")))
	a.handler = bot.NewHandler(a.reg, a.adapter, a.trail, cfg.Telegram.AdminChatID, a.log.With(logx.String("comp", "bot")))
	a.api = httpapi.NewServer(httpapi.Config{
		Port:       cfg.HTTP.Port,
		RatePerSec: cfg.HTTP.RatePerSec,
	}, dispatcher, a.reg, a.log.With(logx.String("comp", "http")))

	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	updates := make(chan transport.Update, updateBuffer)
	if err := a.adapter.Start(a.sup.Context(), updates); err != nil {
		return fmt.Errorf("start telegram: %w", err)
	}

	a.sup.Go("bot.handler", func(c context.Context) error {
		return a.handler.Run(c, updates)
	})

	a.sup.Go("http.serve", func(context.Context) error {
		return a.api.ListenAndServe()
	})
	a.sup.Go0("http.shutdown", func(c context.Context) {
		<-c.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.api.Shutdown(sctx)
	})

	a.startFlushJob(cfg.Registry.FlushEvery)

	a.cfgm.OnChange(a.applyReload)
	a.sup.Go("config.watch", a.cfgm.Watch)

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify: ready")
	}

	a.log.Info("started", logx.Int("http_port", cfg.HTTP.Port))
	return nil
}

// Done is closed when a supervised component fails fatally.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		return nil
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// startFlushJob schedules the registry persistence retry. A save that failed
// during a mutation leaves the registry dirty; this job re-saves it.
func (a *App) startFlushJob(spec string) {
	if spec == "" {
		spec = "@every 1m"
	}
	a.jobs = cron.New()
	_, err := a.jobs.AddFunc(spec, func() {
		if !a.reg.Dirty() {
			return
		}
		if err := a.reg.Flush(); err != nil {
			a.log.Warn("registry flush retry failed", logx.Err(err))
			return
		}
		a.log.Info("registry flush retry succeeded")
	})
	if err != nil {
		a.log.Warn("flush job not scheduled", logx.String("spec", spec), logx.Err(err))
		return
	}
	a.jobs.Start()
}

// applyReload applies the runtime-adjustable parts of a reloaded config.
func (a *App) applyReload(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	})
	a.logSvc.SetTelegramTarget(a.adapter, cfg.Telegram.AdminChatID)
	a.handler.SetAdmin(cfg.Telegram.AdminChatID)
	a.log.Info("runtime config applied")
}

// Stop tears the process down in reverse order and flushes pending state.
func (a *App) Stop(ctx context.Context) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.api != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = a.api.Shutdown(sctx)
		cancel()
	}
	if a.adapter != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = a.adapter.Stop(sctx)
		cancel()
	}
	if a.jobs != nil {
		<-a.jobs.Stop().Done()
	}

	if a.sup != nil {
		wctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.sup.Stop(wctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("shutdown incomplete", logx.Err(err))
		}
		cancel()
	}

	if a.reg != nil {
		if err := a.reg.Flush(); err != nil {
			a.log.Warn("final registry flush failed", logx.Err(err))
		}
	}
	if a.trail != nil {
		_ = a.trail.Close()
	}

	if !a.log.IsZero() {
		a.log.Info("stopped")
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
}

func auditConfig(c config.AuditConfig) audit.Config {
	busy, _ := time.ParseDuration(c.BusyTimeout)
	return audit.Config{Driver: c.Driver, Path: c.Path, BusyTimeout: busy}
}
