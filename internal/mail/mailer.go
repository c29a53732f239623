// Package mail delivers rendered contact emails. Three transports share the
// Mailer interface: direct SMTP, an AMQP queue drained by the mail worker,
// and a log-only sink for development.
package mail

import (
	"context"
	"errors"
	"log/slog"
)

// Transport names accepted by MAIL_TRANSPORT.
const (
	TransportSMTP  = "smtp"
	TransportQueue = "queue"
	TransportLog   = "log"
)

var (
	ErrUnavailable = errors.New("mail transport unavailable")
	ErrInvalid     = errors.New("invalid mail message")
)

// Message is a rendered email addressed to the site owner. ReplyTo is the
// visitor who filled in the contact form.
type Message struct {
	ID        string
	Subject   string
	HTMLBody  string
	ReplyTo   string
	ReplyName string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func (m Message) validate() error {
	if m.Subject == "" || m.HTMLBody == "" || m.ReplyTo == "" {
		return ErrInvalid
	}
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Mail delivery skipped (log transport)",
		"id", msg.ID,
		"subject", msg.Subject,
		"reply_to", msg.ReplyTo,
		"body_bytes", len(msg.HTMLBody))
	return nil
}
