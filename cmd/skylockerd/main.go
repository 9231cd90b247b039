// skylockerd runs the drone parcel cabinet fleet: it loads the cabinet
// configuration, owns the session manager, and runs the background
// telemetry and idle-reclaim sweeps. The calling layer (HTTP or
// otherwise) is expected to drive operations through the manager; this
// daemon keeps the fleet connected and observable.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yunenjoy/skylocker/cabinet"
	"github.com/yunenjoy/skylocker/config"
	"github.com/yunenjoy/skylocker/logger"
	"github.com/yunenjoy/skylocker/telemetry"
)

func main() {
	// Optional .env for deployment overrides; absence is fine.
	_ = godotenv.Load()

	cfgPath := flag.String("config", envOr("SKYLOCKER_CONFIG", "skylocker.yaml"),
		"path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", "path", *cfgPath, "error", err)
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal("config validation failed", "path", *cfgPath, "error", err)
	}
	config.Normalize(cfg)

	logger.SetLevel(levelFromName(cfg.LogLevel))
	log := logger.GetLogger()

	mgr := cabinet.NewManager(cfg.CabinetConfigs(),
		cabinet.WithManagerLogger(log),
		cabinet.WithAudit(func(r cabinet.Record) {
			log.Info("operation audit",
				"cabinet", r.Cabinet,
				"op", string(r.Op),
				"success", r.Success,
				"error", r.Error,
				"elapsed", r.Elapsed.Round(time.Millisecond).String())
		}))

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("skylockerd starting",
		"cabinets", len(cfg.Cabinets),
		"monitor_interval", cfg.MonitorInterval().String(),
		"idle_reclaim", cfg.IdleReclaim().String())

	go reclaimLoop(ctx, mgr, cfg.IdleReclaim())
	go monitorLoop(ctx, mgr, cfg.MonitorInterval())

	<-ctx.Done()

	log.Info("shutting down")
	mgr.DisconnectAll()
}

// reclaimLoop periodically closes cabinet sockets idle beyond the
// threshold.
func reclaimLoop(ctx context.Context, mgr *cabinet.Manager, threshold time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mgr.ReclaimIdle(threshold)
		}
	}
}

// monitorLoop sweeps every cabinet's telemetry surface: system state,
// alarms and flight conditions. Failures are logged and the sweep moves
// on; a cabinet that cannot be reached is simply reported offline by
// its session stats.
func monitorLoop(ctx context.Context, mgr *cabinet.Manager, interval time.Duration) {
	log := logger.GetLogger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, name := range mgr.Cabinets() {
			sess, err := mgr.Session(name)
			if err != nil {
				continue
			}
			if err := sess.Connect(); err != nil {
				log.Warn("telemetry sweep: cabinet unreachable",
					"cabinet", name, "error", err)
				continue
			}

			// The sweep reads without the cabinet's operation lock: the
			// transport serializes individual register accesses and the
			// monitoring registers are disjoint from the handshake set,
			// so an in-flight operation is never disturbed.
			mon := telemetry.NewMonitor(sess.Ops(),
				telemetry.WithMonitorLogger(log.With("cabinet", name)))

			state, err := mon.SystemStatus(ctx)
			if err != nil {
				log.Warn("telemetry sweep: system status failed",
					"cabinet", name, "error", err)
				continue
			}

			alarms, err := mon.Alarms(ctx)
			if err != nil {
				log.Warn("telemetry sweep: alarm read failed",
					"cabinet", name, "error", err)
				continue
			}

			check, err := mon.CheckFlightConditions(ctx)
			if err != nil {
				log.Warn("telemetry sweep: weather read failed",
					"cabinet", name, "error", err)
				continue
			}

			log.Info("telemetry sweep",
				"cabinet", name,
				"system", state.String(),
				"alarms", alarms.Active,
				"flight_ok", check.Suitable,
				"wind_mps", check.Weather.WindSpeed,
				"temp_c", check.Weather.Temperature)
		}
	}
}

func levelFromName(name string) logger.Level {
	switch name {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}