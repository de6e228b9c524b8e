// Package smtp implements a mail.Transport delivering messages over SMTP.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"sync"
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

var tracer = otel.Tracer("github.com/pure-golang/mailer/mail/smtp")

// Transport implements mail.Transport using net/smtp.
type Transport struct {
	mx     sync.Mutex
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	closed bool
}

// TransportOptions contains options for creating a Transport.
type TransportOptions struct {
	Logger *slog.Logger
	// Now supplies the Date header for messages without a date.
	Now func() time.Time
}

// NewTransport creates a new SMTP Transport.
func NewTransport(cfg Config, options *TransportOptions) *Transport {
	if options == nil {
		options = &TransportOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Transport{
		cfg:    cfg,
		logger: options.Logger.WithGroup("smtp"),
		now:    options.Now,
	}
}

// NewMailer returns a mail.Pipeline delivering through SMTP.
func NewMailer(cfg Config, transportOptions *TransportOptions, options *mail.PipelineOptions) *mail.Pipeline {
	if options == nil {
		options = &mail.PipelineOptions{}
	}
	if options.Name == "" {
		options.Name = "smtp"
	}
	return mail.NewPipeline(NewTransport(cfg, transportOptions), options)
}

// SendMessage delivers a single message.
func (s *Transport) SendMessage(ctx context.Context, message *mail.Message) error {
	ctx, span := tracer.Start(ctx, "SMTP.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	subject, _ := message.Subject()
	span.SetAttributes(
		attribute.String("smtp.subject", subject),
		attribute.Int("smtp.to_count", len(message.To())),
		attribute.Int("smtp.cc_count", len(message.Cc())),
		attribute.Int("smtp.bcc_count", len(message.Bcc())),
		attribute.String("smtp.host", s.cfg.Host),
		attribute.Int("smtp.port", s.cfg.Port),
		attribute.Bool("smtp.tls", s.cfg.TLS),
	)

	s.mx.Lock()
	defer s.mx.Unlock()

	if s.closed {
		span.SetStatus(codes.Error, "transport is closed")
		return errors.New("smtp transport is closed")
	}

	from := s.envelopeFrom(message)
	if from == "" {
		span.SetStatus(codes.Error, mail.ErrNoSender.Error())
		return errors.WithStack(mail.ErrNoSender)
	}
	span.SetAttributes(attribute.String("smtp.from", from))

	recipients := append(getEmailAddresses(message.To()), getEmailAddresses(message.Cc())...)
	bcc := getEmailAddresses(message.Bcc())
	if len(recipients) == 0 && len(bcc) == 0 {
		span.SetStatus(codes.Error, mail.ErrNoRecipients.Error())
		return errors.WithStack(mail.ErrNoRecipients)
	}

	msg, err := rfc822.Render(message, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to build message")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	err = s.deliver(ctx, addr, auth, from, recipients, bcc, msg)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to send email")
	}

	s.logger.Debug("message delivered", "addr", addr, "recipients", len(recipients)+len(bcc))
	span.SetStatus(codes.Ok, "")
	return nil
}

// envelopeFrom picks the MAIL FROM address: return path, then the first
// from address, then the configured default.
func (s *Transport) envelopeFrom(message *mail.Message) string {
	if rp, ok := message.ReturnPath(); ok && rp != "" {
		return rp
	}
	if from := message.From(); len(from) > 0 && from[0].Address != "" {
		return from[0].Address
	}
	return s.cfg.From
}

// deliver runs one SMTP session. STARTTLS is negotiated when enabled and
// offered by the server. The connection is closed as soon as ctx is done.
func (s *Transport) deliver(ctx context.Context, addr string, auth smtp.Auth, from string, to, bcc []string, msg []byte) (err error) {
	ctx, span := tracer.Start(ctx, "SMTP.Session")
	defer span.End()

	span.SetAttributes(
		attribute.String("smtp.address", addr),
		attribute.Int("smtp.recipients_count", len(to)+len(bcc)),
		attribute.Bool("smtp.auth", auth != nil),
	)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "context canceled")
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect")
		return errors.Wrap(err, "failed to connect to SMTP server")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer func() {
		stop()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = errors.Wrap(ctxErr, "smtp session interrupted")
			}
		}
	}()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect")
		return errors.Wrap(err, "failed to connect to SMTP server")
	}
	defer func() {
		// the message is already accepted or the session failed; nothing to recover
		_ = client.Close()
	}()

	if !s.cfg.TLS {
		span.SetAttributes(attribute.Bool("smtp.starttls", false))
	} else if ok, _ := client.Extension("STARTTLS"); ok {
		span.SetAttributes(attribute.Bool("smtp.starttls", true))

		tlsConfig := &tls.Config{
			ServerName:         s.cfg.Host,
			InsecureSkipVerify: s.cfg.Insecure, // #nosec G402 -- controlled by config
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to start TLS")
			return errors.Wrap(err, "failed to start TLS")
		}
	} else {
		span.SetAttributes(attribute.Bool("smtp.starttls", false))
	}

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to authenticate")
			return errors.Wrap(err, "failed to authenticate")
		}
	}

	if err := client.Mail(from); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set sender")
		return errors.Wrap(err, "failed to set sender")
	}

	for _, rcpt := range append(to, bcc...) {
		if err := client.Rcpt(rcpt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to set recipient")
			return errors.Wrapf(err, "failed to set recipient: %s", rcpt)
		}
	}

	writer, err := client.Data()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get data writer")
		return errors.Wrap(err, "failed to get data writer")
	}

	if _, err := writer.Write(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write message")
		return errors.Wrap(err, "failed to write message")
	}
	if err := writer.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "message rejected")
		return errors.Wrap(err, "message rejected")
	}

	if err := client.Quit(); err != nil {
		s.logger.Warn("failed to quit smtp session", "error", err.Error())
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// getEmailAddresses extracts bare addresses.
func getEmailAddresses(addrs []mail.Address) []string {
	result := make([]string, 0, len(addrs))
	for _, a := range addrs {
		result = append(result, a.Address)
	}
	return result
}

// Close closes the transport.
func (s *Transport) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.closed = true
	return nil
}
