package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/mail"
	"ledger/internal/metrics"
)

// MailResult is the mailer selected by MAIL_TRANSPORT.
type MailResult struct {
	Mailer    mail.Mailer
	Transport string
	// Ping reports transport readiness; nil means always ready.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// SMTPConfig builds the SMTP settings shared by the web server and the
// mail worker. Breaker transitions are exported as metrics.
func SMTPConfig(cfg *config.Config, m *metrics.Metrics) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		From:        cfg.MailFrom,
		To:          cfg.MailTo,
		SendTimeout: cfg.MailSendTimeout,
		OnStateChange: func(name string, _, to gobreaker.State) {
			m.CircuitState(name, to)
		},
	}
}

// NewMailer builds the mailer for cfg.MailTransport and wraps it so every
// attempt is counted.
func NewMailer(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*MailResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res := &MailResult{Transport: cfg.MailTransport}
	switch cfg.MailTransport {
	case mail.TransportSMTP:
		smtp, err := mail.NewSMTPMailer(SMTPConfig(cfg, m), logger)
		if err != nil {
			return nil, err
		}
		m.CircuitState("smtp", smtp.State())
		res.Mailer = smtp

	case mail.TransportQueue:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		logger.Info("Initialized AMQP client",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		res.Mailer = mail.NewQueueMailer(client)
		res.Ping = func(context.Context) error { return client.Ping() }
		res.Cleanup = client.Close

	case mail.TransportLog:
		res.Mailer = mail.NewLogMailer(logger)

	default:
		return nil, fmt.Errorf("unsupported mail transport: %s", cfg.MailTransport)
	}

	res.Mailer = Instrument(res.Mailer, m, cfg.MailTransport)
	return res, nil
}

// Instrument records the outcome of every Send on m.
func Instrument(next mail.Mailer, m *metrics.Metrics, transport string) mail.Mailer {
	return &instrumentedMailer{next: next, metrics: m, transport: transport}
}

type instrumentedMailer struct {
	next      mail.Mailer
	metrics   *metrics.Metrics
	transport string
}

func (i *instrumentedMailer) Send(ctx context.Context, msg mail.Message) error {
	err := i.next.Send(ctx, msg)
	i.metrics.MailDelivery(i.transport, err)
	return err
}
