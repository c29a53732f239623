package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/contact"
	"ledger/internal/mail"
	"ledger/internal/metrics"
)

const defaultRetryDelay = 5 * time.Second

// MailWorker delivers queued contact emails through a direct transport.
type MailWorker struct {
	mailer    mail.Mailer
	recorder  contact.SubmissionRecorder
	metrics   *metrics.Metrics
	transport string
	// retryDelay slows redelivery while the relay is unavailable.
	retryDelay time.Duration
}

func NewMailWorker(mailer mail.Mailer, recorder contact.SubmissionRecorder, m *metrics.Metrics, transport string) *MailWorker {
	return &MailWorker{
		mailer:     mailer,
		recorder:   recorder,
		metrics:    m,
		transport:  transport,
		retryDelay: defaultRetryDelay,
	}
}

// HandleMailMessage processes a single queued contact email. Messages the
// mailer rejects as invalid are discarded; any other failure is returned so
// the message is redelivered.
func (w *MailWorker) HandleMailMessage(ctx context.Context, msg *amqp.MailMessage) error {
	slog.InfoContext(ctx, "Processing mail message",
		"id", msg.SubmissionID,
		"timestamp", msg.Timestamp)

	err := w.mailer.Send(ctx, mail.FromQueue(msg))
	w.metrics.MailDelivery(w.transport, err)

	switch {
	case err == nil:
		w.mark(ctx, msg.SubmissionID, contact.StatusSent, "")
		slog.InfoContext(ctx, "Successfully delivered mail message", "id", msg.SubmissionID)
		return nil

	case errors.Is(err, mail.ErrInvalid):
		w.mark(ctx, msg.SubmissionID, contact.StatusFailed, err.Error())
		slog.ErrorContext(ctx, "Dropping undeliverable mail message", "id", msg.SubmissionID, "error", err)
		return fmt.Errorf("%w: %v", amqp.ErrDiscard, err)

	case errors.Is(err, mail.ErrUnavailable):
		slog.WarnContext(ctx, "Mail relay unavailable, message will be retried",
			"id", msg.SubmissionID,
			"retry_in", w.retryDelay)
		w.wait(ctx)
		return err

	default:
		slog.ErrorContext(ctx, "Failed to deliver mail message", "id", msg.SubmissionID, "error", err)
		return fmt.Errorf("deliver mail %s: %w", msg.SubmissionID, err)
	}
}

func (w *MailWorker) wait(ctx context.Context) {
	if w.retryDelay <= 0 {
		return
	}
	t := time.NewTimer(w.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *MailWorker) mark(ctx context.Context, id string, status contact.Status, detail string) {
	if w.recorder == nil || id == "" {
		return
	}
	if err := w.recorder.MarkSubmission(ctx, id, status, detail); err != nil {
		slog.WarnContext(ctx, "Failed to update contact submission", "id", id, "status", status, "error", err)
	}
}
