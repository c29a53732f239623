package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	gomail "github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	// SendTimeout bounds a single dial-and-send.
	SendTimeout time.Duration

	// Breaker settings; zero values pick the defaults below.
	MaxRequests   uint32
	Interval      time.Duration
	OpenTimeout   time.Duration
	TripAfter     uint32
	OnStateChange func(name string, from, to gobreaker.State)
}

// SMTPMailer sends through an SMTP relay behind a circuit breaker so a dead
// relay fails fast instead of holding every contact request for the full
// timeout.
type SMTPMailer struct {
	cfg     SMTPConfig
	cb      *gobreaker.CircuitBreaker
	send    func(ctx context.Context, msg *gomail.Msg) error
	logger  *slog.Logger
	timeout time.Duration
}

func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("missing SMTP host")
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, errors.New("missing sender or recipient address")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.SendTimeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.SendTimeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	m := newSMTPMailer(cfg, logger, func(ctx context.Context, msg *gomail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	})
	logger.Info("SMTP mailer initialized",
		"host", cfg.Host,
		"port", cfg.Port,
		"auth", cfg.Username != "",
		"send_timeout", m.timeout)
	return m, nil
}

func newSMTPMailer(cfg SMTPConfig, logger *slog.Logger, send func(context.Context, *gomail.Msg) error) *SMTPMailer {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = 3
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	m := &SMTPMailer{cfg: cfg, send: send, logger: logger, timeout: timeout}
	m.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	gm, err := m.build(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err = m.cb.Execute(func() (interface{}, error) {
		return nil, m.send(ctx, gm)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			m.logger.WarnContext(ctx, "SMTP circuit open, message rejected", "id", msg.ID)
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.InfoContext(ctx, "Mail sent via SMTP", "id", msg.ID, "subject", msg.Subject)
	return nil
}

// State reports the breaker state, for readiness checks.
func (m *SMTPMailer) State() gobreaker.State {
	return m.cb.State()
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	gm := gomail.NewMsg()
	if err := gm.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := gm.To(m.cfg.To); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if msg.ReplyName != "" {
		if err := gm.ReplyToFormat(msg.ReplyName, msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to: %w", err)
		}
	} else if err := gm.ReplyTo(msg.ReplyTo); err != nil {
		return nil, fmt.Errorf("reply-to: %w", err)
	}
	gm.Subject(msg.Subject)
	gm.SetDate()
	gm.SetMessageID()
	gm.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	return gm, nil
}
