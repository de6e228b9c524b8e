package collector

import (
	"context"

	"github.com/pure-golang/mailer/logger"
	"github.com/pure-golang/mailer/mail"
)

var _ mail.Mailer = (*Mailer)(nil)

// Mailer decorates a mail.Mailer, collecting every message handed to it
// before delegating. Collection failures are logged and never affect
// sending.
type Mailer struct {
	decorated mail.Mailer
	collector *Collector
}

// NewMailer wraps decorated.
func NewMailer(decorated mail.Mailer, collector *Collector) *Mailer {
	return &Mailer{decorated: decorated, collector: collector}
}

// Collector returns the collector in use.
func (m *Mailer) Collector() *Collector {
	return m.collector
}

// Send collects message and sends it.
func (m *Mailer) Send(ctx context.Context, message *mail.Message) error {
	m.collect(ctx, message)
	return m.decorated.Send(ctx, message)
}

// SendMultiple collects messages and sends them.
func (m *Mailer) SendMultiple(ctx context.Context, messages []*mail.Message) *mail.SendResults {
	m.collect(ctx, messages...)
	return m.decorated.SendMultiple(ctx, messages)
}

// Close closes the decorated mailer.
func (m *Mailer) Close() error {
	return m.decorated.Close()
}

func (m *Mailer) collect(ctx context.Context, messages ...*mail.Message) {
	if err := m.collector.Collect(ctx, messages...); err != nil {
		logger.FromContextWithErr(logger.NewContext(ctx, m.collector.logger), err).Warn("failed to collect messages")
	}
}
