package contact

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledger/internal/mail"
	"ledger/internal/metrics"
)

// Status tracks a stored submission through delivery.
type Status string

const (
	StatusPending Status = "pending"
	StatusQueued  Status = "queued"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// SubmissionRecorder persists submissions and their delivery outcome.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, id string, s Submission, receivedAt time.Time) error
	MarkSubmission(ctx context.Context, id string, status Status, detail string) error
}

type Receipt struct {
	ID     string
	Status Status
}

type ServiceConfig struct {
	Mailer mail.Mailer
	// Recorder is optional.
	Recorder SubmissionRecorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// Transport is the MAIL_TRANSPORT value; "queue" means a successful
	// Send only enqueued the message.
	Transport string
}

type Service struct {
	mailer    mail.Mailer
	recorder  SubmissionRecorder
	metrics   *metrics.Metrics
	logger    *slog.Logger
	transport string
	now       func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		mailer:    cfg.Mailer,
		recorder:  cfg.Recorder,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "contact"),
		transport: cfg.Transport,
		now:       time.Now,
	}
}

// Submit validates the submission and delivers it to the site owner.
// Validation errors wrap ErrMissingField or ErrInvalidEmail; mailer errors
// wrap ErrDelivery.
func (s *Service) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	sub = sub.Sanitize()
	if err := sub.Validate(); err != nil {
		s.metrics.ContactSubmission(metrics.OutcomeInvalid)
		s.logger.InfoContext(ctx, "Contact submission rejected", "error", err)
		return Receipt{}, err
	}

	receipt := Receipt{ID: uuid.NewString(), Status: StatusPending}
	s.record(ctx, receipt.ID, sub)

	subject, body, err := RenderEmail(sub)
	if err != nil {
		s.fail(ctx, receipt.ID, err)
		return receipt, fmt.Errorf("%w: render: %v", ErrDelivery, err)
	}

	// A queued message may be delivered by the worker before Send returns,
	// so the queued status has to be stored first.
	queued := s.transport == mail.TransportQueue
	if queued {
		s.mark(ctx, receipt.ID, StatusQueued, "")
	}

	err = s.mailer.Send(ctx, mail.Message{
		ID:        receipt.ID,
		Subject:   subject,
		HTMLBody:  body,
		ReplyTo:   sub.Email,
		ReplyName: sub.Name,
	})
	if err != nil {
		s.fail(ctx, receipt.ID, err)
		receipt.Status = StatusFailed
		return receipt, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	receipt.Status = StatusSent
	outcome := metrics.OutcomeSent
	if queued {
		receipt.Status = StatusQueued
		outcome = metrics.OutcomeQueued
	} else {
		s.mark(ctx, receipt.ID, StatusSent, "")
	}
	s.metrics.ContactSubmission(outcome)
	s.logger.InfoContext(ctx, "Contact submission accepted",
		"id", receipt.ID,
		"status", receipt.Status)
	return receipt, nil
}

func (s *Service) fail(ctx context.Context, id string, err error) {
	s.metrics.ContactSubmission(metrics.OutcomeFailed)
	s.logger.ErrorContext(ctx, "Contact delivery failed", "id", id, "error", err)
	s.mark(ctx, id, StatusFailed, err.Error())
}

func (s *Service) record(ctx context.Context, id string, sub Submission) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSubmission(ctx, id, sub, s.now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "Failed to record contact submission", "id", id, "error", err)
	}
}

func (s *Service) mark(ctx context.Context, id string, status Status, detail string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.MarkSubmission(ctx, id, status, detail); err != nil {
		s.logger.WarnContext(ctx, "Failed to update contact submission", "id", id, "status", status, "error", err)
	}
}
