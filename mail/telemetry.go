package mail

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/pure-golang/mailer/mail"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	sentCounter      = newCounter("mail.messages.sent", "Messages accepted by the transport")
	failedCounter    = newCounter("mail.messages.failed", "Messages rejected by the transport")
	cancelledCounter = newCounter("mail.messages.cancelled", "Messages cancelled by a BeforeSend listener")
)

func newCounter(name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("{message}"))
	if err != nil {
		otel.Handle(err)
		return noop.Int64Counter{}
	}
	return c
}

func count(ctx context.Context, c metric.Int64Counter, transport string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("mail.transport", transport)))
}

func messageAttributes(m *Message) []attribute.KeyValue {
	subject, _ := m.Subject()
	return []attribute.KeyValue{
		attribute.String("mail.subject", subject),
		attribute.Int("mail.to_count", len(m.to)),
		attribute.Int("mail.cc_count", len(m.cc)),
		attribute.Int("mail.bcc_count", len(m.bcc)),
		attribute.Int("mail.attachments_count", len(m.attachments)),
		attribute.Int("mail.embeddings_count", len(m.embeddings)),
	}
}
