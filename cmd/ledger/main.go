package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/contact"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	cli.MustValidate(logger, cfg.Validate)

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	store, err := backend.NewFactory(cli.Slog(logger.WithComponent(applog.ComponentStorage))).
		CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	defer closeQuietly(logger, "backend", store.Cleanup)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mailLogger := cli.Slog(logger.WithComponent(applog.ComponentMail))
	mailer, err := backend.NewMailer(cfg, m, mailLogger)
	if err != nil {
		logger.Error("Failed to initialize mailer", "error", err, "transport", cfg.MailTransport)
		os.Exit(1)
	}
	defer closeQuietly(logger, "mailer", mailer.Cleanup)

	contactSvc := contact.NewService(contact.ServiceConfig{
		Mailer:    mailer.Mailer,
		Recorder:  store.Recorder,
		Metrics:   m,
		Logger:    cli.Slog(logger.WithComponent(applog.ComponentContact)),
		Transport: mailer.Transport,
	})

	var checks []apphttp.ReadyCheck
	if store.Ping != nil {
		checks = append(checks, apphttp.ReadyCheck{Name: string(backendCfg.Type), Check: store.Ping})
	}
	if mailer.Ping != nil {
		checks = append(checks, apphttp.ReadyCheck{Name: "mail_" + mailer.Transport, Check: mailer.Ping})
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		Store:              store.Store,
		Contact:            contactSvc,
		DefaultTheme:       cfg.DefaultTheme(),
		CookieSecure:       cfg.CookieSecure,
		Logger:             logger,
		Metrics:            m,
		Gatherer:           reg,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		ReadyChecks:        checks,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting ledger server",
		"port", cfg.Port,
		"backend", backendCfg.Type,
		"mail_transport", mailer.Transport)

	err = cli.Run(ctx, logger, cli.ShutdownTimeout,
		func(context.Context) error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		srv.Shutdown,
	)
	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func closeQuietly(logger *applog.Logger, name string, cleanup backend.CleanupFunc) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Warn("Cleanup failed", "resource", name, "error", err)
	}
}
