// Package file implements a transport saving each message into its own
// .eml file instead of delivering it. Useful in development.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pure-golang/mailer/mail"
)

var _ mail.Transport = (*Transport)(nil)

var tracer = otel.Tracer("github.com/pure-golang/mailer/mail/file")

// Config contains file transport parameters.
type Config struct {
	Path string `envconfig:"MAIL_FILE_PATH" default:"runtime/mail"` // directory receiving .eml files
}

// FilenameFunc returns the file name (relative to Config.Path) for message.
// It may contain subdirectories, which are created as needed.
type FilenameFunc func(message *mail.Message) (string, error)

// TransportOptions contains options for creating a Transport.
type TransportOptions struct {
	Filename FilenameFunc
	Logger   *slog.Logger
	// Now is used by the default file name generator.
	Now func() time.Time
}

// Transport writes messages to files.
type Transport struct {
	cfg      Config
	filename FilenameFunc
	logger   *slog.Logger
}

// NewTransport creates a new file Transport.
func NewTransport(cfg Config, options *TransportOptions) *Transport {
	if options == nil {
		options = &TransportOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	filename := options.Filename
	if filename == nil {
		filename = DefaultFilename(options.Now)
	}
	return &Transport{
		cfg:      cfg,
		filename: filename,
		logger:   options.Logger.WithGroup("file_mailer"),
	}
}

// NewMailer returns a mail.Pipeline writing messages to cfg.Path.
func NewMailer(cfg Config, transportOptions *TransportOptions, options *mail.PipelineOptions) *mail.Pipeline {
	if options == nil {
		options = &mail.PipelineOptions{}
	}
	if options.Name == "" {
		options.Name = "file"
	}
	return mail.NewPipeline(NewTransport(cfg, transportOptions), options)
}

// SendMessage writes message.String() to a new file.
func (t *Transport) SendMessage(ctx context.Context, message *mail.Message) error {
	_, span := tracer.Start(ctx, "File.Write")
	defer span.End()

	name, err := t.filename(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to generate message filename")
	}
	if name == "" {
		span.SetStatus(codes.Error, mail.ErrInvalidFilename.Error())
		return errors.Wrap(mail.ErrInvalidFilename, "filename must not be empty")
	}

	path := filepath.Join(t.cfg.Path, name)
	span.SetAttributes(attribute.String("file.path", path))

	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "directory %q was not created", filepath.Dir(path))
	}

	if err := os.WriteFile(path, []byte(message.String()), 0o666); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "failed to write message to %q", path)
	}

	t.logger.Debug("message saved", "path", path)
	span.SetStatus(codes.Ok, "")
	return nil
}

// DefaultFilename generates names like 20240131-154501-1706715901-0042.eml.
// A nil now uses time.Now.
func DefaultFilename(now func() time.Time) FilenameFunc {
	if now == nil {
		now = time.Now
	}
	return func(*mail.Message) (string, error) {
		ts := now()
		return fmt.Sprintf("%s-%04d-%04d.eml", ts.Format("20060102-150405"), ts.Unix(), rand.IntN(10001)), nil
	}
}
