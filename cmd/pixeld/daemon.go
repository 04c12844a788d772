package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/jmylchreest/pixeld/internal/announce"
	"github.com/jmylchreest/pixeld/internal/config"
	"github.com/jmylchreest/pixeld/internal/engine"
	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/internal/events"
	"github.com/jmylchreest/pixeld/internal/http/handlers"
	"github.com/jmylchreest/pixeld/internal/logging"
	"github.com/jmylchreest/pixeld/internal/natsbridge"
	"github.com/jmylchreest/pixeld/internal/server"
	"github.com/jmylchreest/pixeld/internal/transmit"
	"github.com/jmylchreest/pixeld/pkg/color"
	"github.com/jmylchreest/pixeld/pkg/pixel"
)

// sdNotify is swapped in tests.
var sdNotify = daemon.SdNotify

// controller bundles what the daemon builds from the configuration.
type controller struct {
	engine *engine.Engine
	buffer *pixel.Buffer
	tx     *transmit.Transmitter
	bus    *events.Bus
}

// buildController wires buffer, transmitter and engine, then defines the
// configured areas. An area that fails to map is logged and left empty.
func buildController(cfg *config.Config, logger *slog.Logger) (*controller, error) {
	conv, err := color.NewConverter(cfg.Engine.ColorStrategy)
	if err != nil {
		return nil, err
	}

	buf := pixel.NewBuffer(pixel.WithLogger(logger), pixel.WithStrictMapping(cfg.Engine.StrictMapping))
	if err := buf.Configure(cfg.PixelStrips()); err != nil {
		return nil, fmt.Errorf("failed to configure strips: %w", err)
	}

	txCfg := transmit.Config{
		CPUHz:    cfg.Transmit.CPUHz,
		ResetGap: time.Duration(cfg.Transmit.ResetMicros) * time.Microsecond,
		PauseGC:  cfg.Transmit.PauseGC,
	}
	backend, err := transmit.OpenBackend(cfg.Transmit.Backend, cfg.Transmit.Device, txCfg, logger)
	if err != nil {
		return nil, errors.LogErrorAndReturn(logger, errors.WrapErrorf(err, "failed to open %s backend", cfg.Transmit.Backend),
			"Transmit backend unavailable", "backend", cfg.Transmit.Backend, "device", cfg.Transmit.Device)
	}
	tx := transmit.New(txCfg, backend, transmit.WithLogger(logger))

	bus := events.NewBus()
	eng := engine.New(buf, tx,
		engine.WithLogger(logger),
		engine.WithConverter(conv),
		engine.WithTickRate(config.ValidateTickRate(cfg.Engine.TickRate)),
	)
	eng.SetEventBus(bus)

	for _, a := range cfg.Areas {
		if err := eng.DefineArea(a.ID, a.Name, a.Sections); err != nil {
			if cfg.Engine.StrictMapping {
				_ = tx.Close()
				return nil, fmt.Errorf("failed to define area %d: %w", a.ID, err)
			}
			logger.Warn("Area defined with problems", "area", a.ID, "error", err)
		}
	}

	return &controller{engine: eng, buffer: buf, tx: tx, bus: bus}, nil
}

// close blanks every strip and releases the backend.
func (c *controller) close(logger *slog.Logger) {
	for _, s := range c.buffer.Strips() {
		if err := c.tx.Clear(&s); err != nil {
			logger.Warn("Failed to clear strip", "pin", s.Pin, "error", err)
		}
	}
	if err := c.tx.Close(); err != nil {
		logger.Warn("Failed to close transmit backend", "error", err)
	}
}

// run starts every component and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctrl, err := buildController(cfg, logger)
	if err != nil {
		return err
	}
	defer ctrl.close(logger)

	info := handlers.VersionInfo{Version: version, Commit: commit, BuildDate: buildDate}
	srv := server.New(logger, cfg, ctrl.engine, ctrl.bus, info)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Stop()

	if cfg.NATS.URL != "" {
		bridge := natsbridge.New(cfg.NATS.URL, cfg.NATS.Subject, ctrl.engine, ctrl.bus, logger)
		if err := bridge.Start(); err != nil {
			// The daemon is still useful without the bus.
			logger.Warn("NATS bridge unavailable", "error", err)
		} else {
			defer bridge.Stop()
		}
	}

	if cfg.MDNS.Enabled && cfg.API.ListenAddress != "" {
		txt := announce.TXT(version, len(ctrl.engine.Areas()))
		if a, err := announce.New(cfg.MDNS.Instance, cfg.API.ListenAddress, txt, logger); err != nil {
			logger.Warn("mDNS announcement disabled", "error", err)
		} else if err := a.Start(); err != nil {
			logger.Warn("mDNS announcement failed", "error", err)
		} else {
			defer a.Stop()
		}
	}

	if path := cfg.Path(); path != "" {
		w := config.NewWatcher(path, logger)
		w.OnReload(func(next *config.Config) {
			applyReload(next, logger)
		})
		if err := w.Start(ctx); err != nil {
			logger.Warn("Config watcher unavailable", "error", err)
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	var wg sync.WaitGroup
	engineCtx, stopEngine := context.WithCancel(ctx)
	wg.Go(func() {
		_ = ctrl.engine.Run(engineCtx)
	})

	if ok, err := sdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debug("Failed to notify systemd", "error", err)
	} else if ok {
		logger.Debug("Notified systemd of readiness")
	}

	<-ctx.Done()
	logger.Info("Shutting down...")
	_, _ = sdNotify(false, daemon.SdNotifyStopping)

	stopEngine()
	wg.Wait()
	return nil
}

// applyReload applies the settings that can change without a restart.
func applyReload(next *config.Config, logger *slog.Logger) {
	level := logging.ValidateLogLevel(next.Logging.Level)
	if level == logging.Level() {
		return
	}
	logging.SetLevel(level)
	logger.Info("Log level changed by configuration reload", "level", level)
}
