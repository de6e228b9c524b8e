// Package mail provides immutable email messages and a send pipeline around
// pluggable transports.
package mail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/logger"
)

// Mailer sends messages.
type Mailer interface {
	// Send sends one message. Transport errors are returned as is.
	Send(ctx context.Context, message *Message) error
	// SendMultiple sends messages one by one. A failing message never stops
	// the remaining ones; every message ends up in exactly one result list.
	SendMultiple(ctx context.Context, messages []*Message) *SendResults
	io.Closer
}

// Transport performs the actual delivery of a single message.
type Transport interface {
	SendMessage(ctx context.Context, message *Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, message *Message) error

// SendMessage calls f.
func (f TransportFunc) SendMessage(ctx context.Context, message *Message) error {
	return f(ctx, message)
}

var _ Mailer = (*Pipeline)(nil)

// Pipeline implements Mailer on top of a Transport: it applies the default
// settings, dispatches BeforeSend (which may cancel), calls the transport and
// dispatches AfterSend.
type Pipeline struct {
	transport  Transport
	name       string
	settings   *MessageSettings
	dispatcher Dispatcher
	logger     *slog.Logger

	mx     sync.RWMutex
	closed bool
}

// PipelineOptions contains options for creating a Pipeline.
type PipelineOptions struct {
	// Settings are applied to every message before sending.
	Settings *MessageSettings
	// Dispatcher receives BeforeSend and AfterSend events. Nil disables events.
	Dispatcher Dispatcher
	// Logger overrides the logger taken from the context.
	Logger *slog.Logger
	// Name identifies the transport in logs, spans and metrics.
	Name string
}

// NewPipeline creates a Pipeline delivering through transport.
func NewPipeline(transport Transport, options *PipelineOptions) *Pipeline {
	if options == nil {
		options = &PipelineOptions{}
	}
	name := options.Name
	if name == "" {
		name = fmt.Sprintf("%T", transport)
	}
	return &Pipeline{
		transport:  transport,
		name:       name,
		settings:   options.Settings,
		dispatcher: options.Dispatcher,
		logger:     options.Logger,
	}
}

// Transport returns the underlying transport.
func (p *Pipeline) Transport() Transport {
	return p.transport
}

// Send sends the given message.
func (p *Pipeline) Send(ctx context.Context, message *Message) error {
	ctx, span := tracer.Start(ctx, "Mailer.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if p.isClosed() {
		span.SetStatus(codes.Error, ErrMailerClosed.Error())
		return ErrMailerClosed
	}

	message = p.settings.ApplyTo(message)
	span.SetAttributes(messageAttributes(message)...)
	span.SetAttributes(attribute.String("mail.transport", p.name))

	l := p.log(ctx).With("transport", p.name, "message", message)

	if !p.beforeSend(ctx, message) {
		span.SetAttributes(attribute.Bool("mail.cancelled", true))
		span.SetStatus(codes.Ok, "")
		count(ctx, cancelledCounter, p.name)
		l.Info("sending cancelled by listener")
		return nil
	}

	if err := p.transport.SendMessage(ctx, message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		count(ctx, failedCounter, p.name)
		logger.FromContextWithErr(logger.NewContext(ctx, l), err).Error("failed to send message")
		return err
	}

	count(ctx, sentCounter, p.name)
	l.Debug("message sent")

	p.afterSend(ctx, message)
	span.SetStatus(codes.Ok, "")
	return nil
}

// SendMultiple sends messages in order and collects the results.
func (p *Pipeline) SendMultiple(ctx context.Context, messages []*Message) *SendResults {
	ctx, span := tracer.Start(ctx, "Mailer.SendMultiple")
	defer span.End()

	results := &SendResults{
		SuccessMessages: make([]*Message, 0, len(messages)),
		FailMessages:    []Failure{},
	}

	for _, message := range messages {
		err := ctx.Err()
		if err == nil {
			err = p.Send(ctx, message)
		}
		if err != nil {
			results.FailMessages = append(results.FailMessages, Failure{
				Message: message.WithError(err),
				Err:     err,
			})
			continue
		}
		results.SuccessMessages = append(results.SuccessMessages, message)
	}

	span.SetAttributes(
		attribute.Int("mail.batch_size", len(messages)),
		attribute.Int("mail.batch_failed", len(results.FailMessages)),
	)
	if results.Failed() {
		span.SetStatus(codes.Error, "some messages failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return results
}

// Close closes the transport if it implements io.Closer. Closing twice is a no-op.
func (p *Pipeline) Close() error {
	p.mx.Lock()
	defer p.mx.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if c, ok := p.transport.(io.Closer); ok {
		return errors.Wrapf(c.Close(), "failed to close %s transport", p.name)
	}
	return nil
}

func (p *Pipeline) isClosed() bool {
	p.mx.RLock()
	defer p.mx.RUnlock()
	return p.closed
}

func (p *Pipeline) beforeSend(ctx context.Context, message *Message) bool {
	if p.dispatcher == nil {
		return true
	}
	var event Event = NewBeforeSend(message)
	if dispatched := p.dispatcher.Dispatch(ctx, event); dispatched != nil {
		event = dispatched
	}
	before, ok := event.(*BeforeSend)
	return !ok || !before.IsSendingPrevented()
}

func (p *Pipeline) afterSend(ctx context.Context, message *Message) {
	if p.dispatcher == nil {
		return
	}
	p.dispatcher.Dispatch(ctx, NewAfterSend(message))
}

func (p *Pipeline) log(ctx context.Context) *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return logger.FromContext(ctx)
}
