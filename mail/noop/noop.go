package noop

import (
	"context"

	"github.com/pure-golang/mailer/mail"
)

var (
	_ mail.Transport = (*Transport)(nil)
	_ mail.Mailer    = (*Mailer)(nil)
)

// Transport silently discards messages.
type Transport struct{}

// NewTransport creates a discarding Transport, useful behind a mail.Pipeline
// when events and settings should still run.
func NewTransport() *Transport {
	return &Transport{}
}

// SendMessage discards the message.
func (*Transport) SendMessage(context.Context, *mail.Message) error {
	return nil
}

// Mailer is a mail.Mailer that sends nothing and reports every message as sent.
// It neither applies settings nor dispatches events.
type Mailer struct{}

// NewMailer creates a new no-op Mailer.
func NewMailer() *Mailer {
	return &Mailer{}
}

// Send does nothing.
func (*Mailer) Send(context.Context, *mail.Message) error {
	return nil
}

// SendMultiple reports all messages as successfully sent.
func (*Mailer) SendMultiple(_ context.Context, messages []*mail.Message) *mail.SendResults {
	return &mail.SendResults{
		SuccessMessages: append([]*mail.Message{}, messages...),
		FailMessages:    []mail.Failure{},
	}
}

// Close is a no-op.
func (*Mailer) Close() error {
	return nil
}
