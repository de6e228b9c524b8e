// Package minio implements a transport storing every message as an .eml
// object in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/mail"
	"github.com/pure-golang/mailer/mail/file"
	"github.com/pure-golang/mailer/mail/rfc822"
)

var _ mail.Transport = (*Transport)(nil)

var tracer = otel.Tracer("github.com/pure-golang/mailer/mail/minio")

// ObjectPutter is the part of *minio.Client the transport needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// TransportOptions contains options for creating a Transport.
type TransportOptions struct {
	// Filename names objects below Config.Prefix. Defaults to file.DefaultFilename.
	Filename file.FilenameFunc
	Logger   *slog.Logger
	// Now supplies the Date header and default object names.
	Now func() time.Time
}

// Transport uploads rendered messages to a bucket.
type Transport struct {
	client   ObjectPutter
	cfg      Config
	filename file.FilenameFunc
	now      func() time.Time
	logger   *slog.Logger
}

// NewTransport creates a Transport uploading through client.
func NewTransport(client ObjectPutter, cfg Config, options *TransportOptions) *Transport {
	if options == nil {
		options = &TransportOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	filename := options.Filename
	if filename == nil {
		filename = file.DefaultFilename(options.Now)
	}
	return &Transport{
		client:   client,
		cfg:      cfg,
		filename: filename,
		now:      options.Now,
		logger:   options.Logger.WithGroup("storage").With("backend", "s3"),
	}
}

// NewMailer connects to the storage and returns a mail.Pipeline over it.
func NewMailer(cfg Config, transportOptions *TransportOptions, options *mail.PipelineOptions) (*mail.Pipeline, error) {
	var clientOptions *ClientOptions
	if transportOptions != nil {
		clientOptions = &ClientOptions{Logger: transportOptions.Logger}
	}
	client, err := NewClient(cfg, clientOptions)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = &mail.PipelineOptions{}
	}
	if options.Name == "" {
		options.Name = "minio"
	}
	return mail.NewPipeline(NewTransport(client, cfg, transportOptions), options), nil
}

// SendMessage renders message and stores it as one object.
func (t *Transport) SendMessage(ctx context.Context, message *mail.Message) error {
	ctx, span := tracer.Start(ctx, "S3.PutMessage", trace.WithSpanKind(trace.SpanKindClient))
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
	key := path.Join(t.cfg.Prefix, name)

	span.SetAttributes(
		attribute.String("bucket", t.cfg.Bucket),
		attribute.String("key", key),
	)

	data, err := rfc822.Render(message, t.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to render message")
	}

	info, err := t.client.PutObject(ctx, t.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: rfc822.ContentType,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "failed to put object %s/%s", t.cfg.Bucket, key)
	}

	span.SetAttributes(
		attribute.Int64("size", info.Size),
		attribute.String("etag", info.ETag),
	)
	span.SetStatus(codes.Ok, "")

	t.logger.Debug("message stored", "bucket", t.cfg.Bucket, "key", key, "size", info.Size)
	return nil
}
