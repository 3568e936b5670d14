// Package app wires the bot together: configuration, logging, the Discord
// adapter, persistence, and the countdown lifecycle, plus the event loop
// that routes gateway updates into command handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"mushbot/internal/config"
	"mushbot/internal/countdown"
	"mushbot/internal/guildstore"
	"mushbot/internal/lamp"
	"mushbot/internal/lang"
	"mushbot/internal/runtime/supervisor"
	"mushbot/internal/sched"
	"mushbot/internal/transport"
	"mushbot/internal/transport/discord"
	"mushbot/pkg/logx"
)

const (
	updateQueueSize = 64
	shutdownTimeout = 10 * time.Second
)

// App owns every long-lived component of the bot.
type App struct {
	log    logx.Logger
	logSvc *logx.Service

	cfgMgr   *config.Manager
	tr       transport.Adapter
	timerSvc *sched.Service
	store    guildstore.Store
	lang     *lang.Service
	lamps    *lamp.Calculator
	settings *settingsStore
	manager  *countdown.Manager

	updates chan transport.Update

	readyOnce sync.Once
	readyCh   chan struct{}
}

// New builds the app from the config file at cfgPath. The Discord token
// comes from the config or, when absent there, the DISCORD_TOKEN
// environment variable.
func New(cfgPath string) (*App, error) {
	boot := logx.NewConsole("info")

	cfgMgr := config.NewManager(cfgPath, boot)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	token := strings.TrimSpace(cfg.Discord.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	}
	if token == "" {
		return nil, errors.New("no Discord token: set discord.token or DISCORD_TOKEN")
	}

	adapter, err := discord.New(token, cfg.Discord.CommandGuild, boot)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.Logging.ToLogx(), adapter)
	logSvc.SetDiscordTarget(cfg.Discord.LogChannel)
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))

	store, err := guildstore.Open(cfg.Storage.ToStore(), log.With(logx.String("comp", "guildstore")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open guild store: %w", err)
	}

	langSvc := lang.New(log)
	if err := langSvc.Load(cfg.Language.File); err != nil {
		log.Warn("language file not loaded, using built-in text", logx.Err(err))
	}

	lamps := lamp.NewCalculator(log)
	if err := lamps.LoadConfig(cfg.Lamp.File); err != nil {
		log.Warn("lamp config not loaded, using built-in table", logx.Err(err))
	}

	timers := sched.New(log.With(logx.String("comp", "sched")))
	reg := countdown.NewRegistry(log, timers)
	settings := newSettingsStore(log, store, cfg.Countdown.Defaults)
	render := countdown.NewRenderer(langSvc)
	manager := countdown.NewManager(log, adapter, timers, reg, render, settings, cfg.Countdown.Options())

	return &App{
		log:      log,
		logSvc:   logSvc,
		cfgMgr:   cfgMgr,
		tr:       adapter,
		timerSvc: timers,
		store:    store,
		lang:     langSvc,
		lamps:    lamps,
		settings: settings,
		manager:  manager,
		updates:  make(chan transport.Update, updateQueueSize),
		readyCh:  make(chan struct{}),
	}, nil
}

// Ready closes once the gateway session is up, commands are registered,
// and stored countdowns have been resumed.
func (a *App) Ready() <-chan struct{} { return a.readyCh }

// Run connects to Discord and blocks until ctx is cancelled, then shuts
// everything down in dependency order.
func (a *App) Run(ctx context.Context) error {
	// Guard against stale timer handles if Run is ever re-entered in-process.
	a.manager.Registry().ClearAll()
	a.timerSvc.Start(ctx)

	if err := a.tr.Start(ctx, a.updates); err != nil {
		a.timerSvc.Stop(ctx)
		return fmt.Errorf("connect gateway: %w", err)
	}

	sup := supervisor.New(ctx, supervisor.WithLogger(a.log))
	sub := a.cfgMgr.Subscribe()
	sup.GoRestart("config-watch", a.cfgMgr.Watch)
	sup.Go0("config-apply", func(ctx context.Context) { a.applyLoop(ctx, sub) })
	sup.Go0("events", a.eventLoop)

	<-ctx.Done()
	a.log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := sup.Stop(stopCtx)
	a.cfgMgr.Unsubscribe(sub)

	a.timerSvc.Stop(stopCtx)
	if terr := a.tr.Stop(stopCtx); terr != nil {
		a.log.Warn("gateway close failed", logx.Err(terr))
	}
	if a.store != nil {
		if serr := a.store.Close(); serr != nil {
			a.log.Warn("guild store close failed", logx.Err(serr))
		}
	}
	_ = a.logSvc.Close()
	return err
}

// applyLoop applies each committed config reload to the running services.
func (a *App) applyLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.applyConfig(ctx, cfg)
		}
	}
}

// applyConfig hot-swaps everything that can change without a restart.
// Storage driver changes still need a restart; the open store is kept.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logSvc.Apply(cfg.Logging.ToLogx())
	a.logSvc.SetDiscordTarget(cfg.Discord.LogChannel)

	if err := a.lang.Load(cfg.Language.File); err != nil {
		a.log.Warn("language reload failed, keeping current text", logx.Err(err))
	}
	if err := a.lamps.LoadConfig(cfg.Lamp.File); err != nil {
		a.log.Warn("lamp config reload failed, keeping current table", logx.Err(err))
	}

	a.manager.SetOptions(cfg.Countdown.Options())
	a.settings.SetDefaults(cfg.Countdown.Defaults)

	if a.tr.Ready() {
		a.setPresence(ctx, cfg)
	}
	a.log.Info("configuration applied")
}

func (a *App) setPresence(ctx context.Context, cfg *config.Config) {
	p := cfg.Discord.Presence
	if strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.Status) == "" {
		return
	}
	err := a.tr.SetPresence(ctx, transport.Presence{Type: p.Type, Text: p.Text, Status: p.Status})
	if err != nil {
		a.log.Warn("presence update failed", logx.Err(err))
	}
}
