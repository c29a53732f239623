package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// MailMessage carries a rendered contact email from the web process to the
// mail worker. The body is rendered before publishing so the worker only has
// to deliver it.
type MailMessage struct {
	SubmissionID string    `json:"submission_id"`
	Subject      string    `json:"subject"`
	HTMLBody     string    `json:"html_body"`
	ReplyTo      string    `json:"reply_to"`
	ReplyName    string    `json:"reply_name"`
	Timestamp    time.Time `json:"timestamp"`
}

var ErrMalformedMessage = errors.New("malformed mail message")

// NewMailMessage stamps a message with the current time.
func NewMailMessage(submissionID, subject, htmlBody, replyTo, replyName string) *MailMessage {
	return &MailMessage{
		SubmissionID: submissionID,
		Subject:      subject,
		HTMLBody:     htmlBody,
		ReplyTo:      replyTo,
		ReplyName:    replyName,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MailMessageFromJSON decodes a message and rejects ones that cannot be delivered.
func MailMessageFromJSON(data []byte) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Subject == "" || msg.HTMLBody == "" || msg.ReplyTo == "" {
		return nil, ErrMalformedMessage
	}
	return &msg, nil
}
