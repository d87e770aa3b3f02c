// Command expirybot runs the expiry-tracking bot: the SQLite store, the
// license and certificate cycles, and the optional metrics listener.
// The chat transport is pluggable; without one the bot logs outbound
// notifications, which is the dry-run wiring for local development.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/expirywatch/expirybot/internal/bot"
	"github.com/expirywatch/expirybot/internal/config"
	"github.com/expirywatch/expirybot/internal/metrics"
	"github.com/expirywatch/expirybot/internal/notify"
	"github.com/expirywatch/expirybot/internal/probe"
	"github.com/expirywatch/expirybot/internal/repo"
	"github.com/expirywatch/expirybot/internal/scheduler"
	"github.com/expirywatch/expirybot/internal/services"
	"github.com/expirywatch/expirybot/internal/sysutil"
)

func main() {
	// A missing .env file is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	log := sysutil.NewLogger(cfg.LogPretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("expirybot exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	log.Info().Str("db", cfg.DBPath).Str("timezone", cfg.Timezone).Msg("store ready")

	licenses := services.NewLicenseService(db, cfg.Loc)
	hosts := services.NewHostService(db)
	access := services.NewAccessService(db, cfg.OperatorID)

	notifier := notify.LogNotifier{Log: log.With().Str("component", "notifier").Logger()}
	dispatcher := notify.NewDispatcher(notifier, access, cfg.OperatorID, cfg.NotifyRPS, cfg.NotifyBurst,
		log.With().Str("component", "dispatcher").Logger())

	prober := probe.New(cfg.ProbeTimeout, cfg.Loc)
	licenseCycle := scheduler.NewLicenseCycle(licenses, dispatcher, cfg.Loc,
		log.With().Str("cycle", "license").Logger())
	certCycle := scheduler.NewCertCycle(hosts, prober, dispatcher, cfg.Loc,
		log.With().Str("cycle", "certificate").Logger())

	router := bot.New(licenses, hosts, access, certCycle, notifier, cfg.OperatorID, cfg.Loc,
		log.With().Str("component", "bot").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go (&console{bot: router, operatorID: cfg.OperatorID, in: os.Stdin, log: log}).Run(ctx)

	sched := scheduler.New(licenseCycle, certCycle, cfg.LicenseCheckInterval, cfg.CertCheckInterval,
		log.With().Str("component", "scheduler").Logger())
	if err := sched.Start(ctx); err != nil {
		return err
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sched.Stop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}
