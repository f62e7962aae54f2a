package app

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"

	"ghwatch/internal/config"
	"ghwatch/internal/core"
	"ghwatch/internal/github"
	"ghwatch/internal/pipeline"
	"ghwatch/internal/sink"
	"ghwatch/internal/storage"
	"ghwatch/internal/watcher"
	logx "ghwatch/pkg/logx"
)

// App wires config, logging, the GitHub client, the pipeline, the
// sinks, and the poll loop together.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *core.Supervisor

	log  logx.Logger
	logs *logx.Service

	client *github.Client
	store  storage.Store
	pipe   *pipeline.Pipeline
	watch  *watcher.Service
	tg     *sink.Telegram // nil unless the telegram sink is enabled

	stopMaint func()
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Mirror: logx.MirrorConfig{
			Enabled:    cfg.Logging.Mirror.Enabled,
			MinLevel:   cfg.Logging.Mirror.MinLevel,
			RatePerSec: cfg.Logging.Mirror.RatePerSec,
		},
	})
	log = log.With(logx.String("comp", "app"))

	cfgm.SetLogger(logs.Logger().With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		_, err := buildOptions(cfg)
		return err
	})

	// Zero timeout falls back to the client's own default.
	timeout, err := config.ParseDuration("github.timeout", cfg.GitHub.Timeout)
	if err != nil {
		return nil, err
	}
	client := github.New(github.Config{
		Token:      cfg.GitHub.Token,
		BaseURL:    cfg.GitHub.BaseURL,
		Timeout:    timeout,
		RatePerSec: cfg.GitHub.RatePerSec,
	}, logs.Logger().With(logx.String("comp", "github")))

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDuration("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, logs.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logs,
		client:  client,
		store:   store,
	}

	alertSink, err := a.buildSinks(cfg)
	if err != nil {
		return nil, err
	}

	opts, err := buildOptions(cfg)
	if err != nil {
		return nil, err
	}

	plog := logs.Logger().With(logx.String("comp", "pipeline"))
	a.pipe = pipeline.New(pipeline.Deps{
		Feed:     client,
		Identity: client,
		Marker:   client,
		Enricher: pipeline.NewEnricher(client, 0, plog),
		Workflow: pipeline.NewWorkflowPassFilter(client, plog),
		Gate:     pipeline.NewGate(store, plog),
		Sink:     alertSink,
		Log:      plog,
	}, opts)

	pollInterval, err := config.ParseDuration("github.poll_interval", cfg.GitHub.PollInterval)
	if err != nil {
		return nil, err
	}
	a.watch = watcher.New(a.pipe, watcher.Config{DefaultInterval: pollInterval},
		logs.Logger().With(logx.String("comp", "watcher")))
	a.watch.SetKeepalive(func() {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	})

	return a, nil
}

func (a *App) buildSinks(cfg *config.Config) (pipeline.Sink, error) {
	var sinks []pipeline.Sink

	if cfg.Sinks.Command.Enabled {
		timeout, err := config.ParseDuration("sinks.command.timeout", cfg.Sinks.Command.Timeout)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink.NewCommand(sink.CommandConfig{
			Command: cfg.Sinks.Command.Command,
			Args:    cfg.Sinks.Command.Args,
			Timeout: timeout,
		}, a.logs.Logger().With(logx.String("comp", "sink.command"))))
	}

	if cfg.Sinks.Telegram.Enabled {
		tg, err := sink.NewTelegram(sink.TelegramConfig{
			Token:           cfg.Sinks.Telegram.Token,
			ChatID:          cfg.Sinks.Telegram.ChatID,
			Sound:           cfg.Notifications.Sound,
			MarkReadOnClick: cfg.Notifications.MarkReadOnClick,
		}, a.client, a.logs.Logger().With(logx.String("comp", "sink.telegram")))
		if err != nil {
			return nil, err
		}
		a.tg = tg
		sinks = append(sinks, tg)
		if cfg.Logging.Mirror.Enabled {
			a.logs.SetMirror(tg.Mirror)
		}
	}

	// The log sink is the fallback so an empty sink config still
	// surfaces alerts somewhere visible.
	if cfg.Sinks.Log.Enabled || len(sinks) == 0 {
		sinks = append(sinks, sink.NewLog(a.logs.Logger().With(logx.String("comp", "sink.log"))))
	}

	return sink.NewMulti(a.logs.Logger().With(logx.String("comp", "sink")), sinks...), nil
}

// buildOptions compiles the pipeline options from config. Also used
// as the reload validator, so any error here rejects a bad config
// before it is committed.
func buildOptions(cfg *config.Config) (pipeline.Options, error) {
	threadPreds, err := config.CompileThreadRules(cfg.Notifications.SkipThreads)
	if err != nil {
		return pipeline.Options{}, err
	}
	actPreds, err := config.CompileActivityRules(cfg.Notifications.SkipActivities)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		SkipThreads:     threadPreds,
		SkipActivities:  actPreds,
		MarkSkippedRead: cfg.Notifications.MarkSkippedRead,
		CollapseMerged:  cfg.Notifications.CollapseMerged,
		Format: pipeline.FormatConfig{
			RepoAliases: cfg.Notifications.RepoAliases,
			UserAliases: cfg.Notifications.UserAliases,
		},
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = core.NewSupervisor(ctx, core.WithLogger(a.log))

	cfg := a.cfgm.Get()
	if cfg.Upkeep != nil {
		retention, err := config.ParseDuration("maintenance.ledger_retention", cfg.Upkeep.LedgerRetention)
		if err != nil {
			return err
		}
		stop, err := a.watch.StartMaintenance(watcher.MaintenanceConfig{
			LedgerPrune:        cfg.Upkeep.LedgerPrune,
			LedgerRetention:    retention,
			WorkflowCacheReset: cfg.Upkeep.WorkflowCacheReset,
		})
		if err != nil {
			return err
		}
		a.stopMaint = stop
	}

	a.sup.Go("config-watch", a.cfgm.Watch)
	a.sup.Go0("config-apply", a.applyLoop)
	if a.tg != nil {
		a.sup.Go0("telegram-poller", a.tg.Run)
	}
	a.sup.Go("poll-loop", a.watch.Run)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started", logx.String("config", a.cfgPath))
	return nil
}

// applyLoop re-applies reloadable config sections on change. GitHub
// credentials, storage, and sink topology need a restart; that is
// logged rather than silently ignored.
func (a *App) applyLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
				Mirror: logx.MirrorConfig{
					Enabled:    cfg.Logging.Mirror.Enabled,
					MinLevel:   cfg.Logging.Mirror.MinLevel,
					RatePerSec: cfg.Logging.Mirror.RatePerSec,
				},
			})

			opts, err := buildOptions(cfg)
			if err != nil {
				// The validator should have rejected this already.
				a.log.Warn("reloaded config has invalid rules; keeping previous", logx.Err(err))
				continue
			}
			a.pipe.SetOptions(opts)
			a.log.Info("config reloaded")
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.stopMaint != nil {
		a.stopMaint()
	}
	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logs.Close()
	return err
}
