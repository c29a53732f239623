package mail

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
)

// Publisher is implemented by *amqp.Client.
type Publisher interface {
	PublishMail(ctx context.Context, msg *amqp.MailMessage) error
}

// QueueMailer hands messages to the mail worker. A nil error means the
// message was enqueued, not delivered.
type QueueMailer struct {
	pub Publisher
}

func NewQueueMailer(pub Publisher) *QueueMailer {
	return &QueueMailer{pub: pub}
}

func (q *QueueMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := q.pub.PublishMail(ctx, amqp.NewMailMessage(msg.ID, msg.Subject, msg.HTMLBody, msg.ReplyTo, msg.ReplyName)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FromQueue converts a queued message back into a Message.
func FromQueue(m *amqp.MailMessage) Message {
	return Message{
		ID:        m.SubmissionID,
		Subject:   m.Subject,
		HTMLBody:  m.HTMLBody,
		ReplyTo:   m.ReplyTo,
		ReplyName: m.ReplyName,
	}
}
