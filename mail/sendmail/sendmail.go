// Package sendmail implements a mail.Transport that pipes messages to a
// local sendmail compatible binary.
package sendmail

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/mail"
	"github.com/pure-golang/mailer/mail/rfc822"
)

var _ mail.Transport = (*Transport)(nil)

var tracer = otel.Tracer("github.com/pure-golang/mailer/mail/sendmail")

// Transport implements mail.Transport by running sendmail once per message
// with the rendered message on stdin.
type Transport struct {
	cfg      Config
	executor Executor
	logger   *slog.Logger
	now      func() time.Time
}

// TransportOptions contains options for creating a Transport.
type TransportOptions struct {
	Logger *slog.Logger
	// Executor replaces the local command, mostly for tests.
	Executor Executor
	// Now supplies the Date header for messages without a date.
	Now func() time.Time
}

// NewTransport creates a sendmail Transport. Without an Executor in options
// it runs the binary at cfg.Path.
func NewTransport(cfg Config, options *TransportOptions) *Transport {
	if options == nil {
		options = &TransportOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Executor == nil {
		options.Executor = NewCommandExecutor(cfg.Path)
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Transport{
		cfg:      cfg,
		executor: options.Executor,
		logger:   options.Logger.WithGroup("sendmail"),
		now:      options.Now,
	}
}

// NewMailer returns a mail.Pipeline delivering through sendmail.
func NewMailer(cfg Config, transportOptions *TransportOptions, options *mail.PipelineOptions) *mail.Pipeline {
	if options == nil {
		options = &mail.PipelineOptions{}
	}
	if options.Name == "" {
		options.Name = "sendmail"
	}
	return mail.NewPipeline(NewTransport(cfg, transportOptions), options)
}

// SendMessage runs "sendmail -i [-f sender] -- recipients..." with the
// rendered message on stdin. Bcc recipients only appear on the command line.
func (t *Transport) SendMessage(ctx context.Context, message *mail.Message) error {
	ctx, span := tracer.Start(ctx, "Sendmail.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	recipients := make([]string, 0, len(message.To())+len(message.Cc())+len(message.Bcc()))
	for _, list := range [][]mail.Address{message.To(), message.Cc(), message.Bcc()} {
		for _, a := range list {
			if a.Address != "" {
				recipients = append(recipients, a.Address)
			}
		}
	}
	if len(recipients) == 0 {
		span.SetStatus(codes.Error, mail.ErrNoRecipients.Error())
		return errors.WithStack(mail.ErrNoRecipients)
	}

	data, err := rfc822.Render(message, t.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to build message")
	}

	args := []string{"-i"}
	if from := t.sender(message); from != "" {
		args = append(args, "-f", from)
	}
	args = append(args, "--")
	args = append(args, recipients...)
	span.SetAttributes(attribute.Int("sendmail.recipients", len(recipients)))

	if _, err := t.executor.Execute(ctx, bytes.NewReader(data), args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to run sendmail")
	}

	t.logger.Debug("message handed to sendmail", "recipients", len(recipients))
	span.SetStatus(codes.Ok, "")
	return nil
}

// sender picks the -f address: return path, then the first from address,
// then the configured default.
func (t *Transport) sender(message *mail.Message) string {
	if rp, ok := message.ReturnPath(); ok && rp != "" {
		return rp
	}
	if from := message.From(); len(from) > 0 && from[0].Address != "" {
		return from[0].Address
	}
	return t.cfg.From
}

// Close closes the underlying executor.
func (t *Transport) Close() error {
	return errors.Wrap(t.executor.Close(), "failed to close sendmail executor")
}
