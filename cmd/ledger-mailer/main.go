package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/contact"
	applog "ledger/internal/log"
	"ledger/internal/mail"
	"ledger/internal/metrics"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	cli.MustValidate(logger, cfg.ValidateMailer)

	logger.Info("Starting ledger-mailer")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Submissions are only tracked when the web server shares a SQLite file.
	var recorder contact.SubmissionRecorder
	if cfg.DataBackend == string(backend.SQLiteBackend) {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		recorder = repo
	}

	smtp, err := mail.NewSMTPMailer(backend.SMTPConfig(cfg, m), cli.Slog(logger.WithComponent(applog.ComponentMail)))
	if err != nil {
		logger.Error("Failed to initialize SMTP mailer", "error", err)
		os.Exit(1)
	}
	m.CircuitState("smtp", smtp.State())

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewMailWorker(smtp, recorder, m, mail.TransportSMTP)

	var metricsSrv *http.Server
	if cfg.MailerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
			if err := client.Ping(); err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			_, _ = rw.Write([]byte("ok"))
		})
		metricsSrv = &http.Server{
			Addr:              cfg.MailerMetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	err = cli.Run(context.Background(), logger, cli.ShutdownTimeout,
		func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := client.ConsumeMail(ctx, w.HandleMailMessage)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			if metricsSrv != nil {
				logger.Info("Serving worker metrics", "addr", cfg.MailerMetricsAddr)
				g.Go(func() error {
					if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return metricsSrv.Shutdown(shutdownCtx)
				})
			}
			return g.Wait()
		},
		// The consumer and metrics listener stop with the serve context.
		func(context.Context) error { return nil },
	)
	if err != nil {
		logger.Error("Mail worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Mail worker stopped gracefully")
}
