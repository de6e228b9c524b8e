// Package stub provides an in-memory transport recording sent messages,
// meant for tests of code that sends mail.
package stub

import (
	"context"
	"sync"

	"github.com/pure-golang/mailer/mail"
)

var _ mail.Transport = (*Transport)(nil)

// Transport records every message it receives.
type Transport struct {
	mx       sync.Mutex
	messages []*mail.Message
}

// NewTransport creates an empty recording Transport.
func NewTransport() *Transport {
	return &Transport{}
}

// NewMailer returns a Pipeline over a new recording Transport.
func NewMailer(options *mail.PipelineOptions) (*mail.Pipeline, *Transport) {
	t := NewTransport()
	if options == nil {
		options = &mail.PipelineOptions{}
	}
	if options.Name == "" {
		options.Name = "stub"
	}
	return mail.NewPipeline(t, options), t
}

// SendMessage records the message.
func (t *Transport) SendMessage(_ context.Context, message *mail.Message) error {
	t.mx.Lock()
	defer t.mx.Unlock()

	t.messages = append(t.messages, message)
	return nil
}

// Messages returns the recorded messages in the order they were sent.
func (t *Transport) Messages() []*mail.Message {
	t.mx.Lock()
	defer t.mx.Unlock()

	return append([]*mail.Message{}, t.messages...)
}

// Reset forgets all recorded messages.
func (t *Transport) Reset() {
	t.mx.Lock()
	defer t.mx.Unlock()

	t.messages = nil
}
