package minio

import (
	"context"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// ErrBucketNotFound is returned by NewClient when the bucket is missing and
// Config.CreateBucket is false.
var ErrBucketNotFound = errors.New("bucket not found")

// ClientOptions contains options for client creation.
type ClientOptions struct {
	Logger *slog.Logger
}

// NewClient creates a minio client and makes sure the bucket exists.
func NewClient(cfg Config, options *ClientOptions) (*minio.Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.WithGroup("s3")

	// InsecureSkipVerify takes precedence
	secure := cfg.Secure
	if cfg.InsecureSkipVerify {
		secure = false
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region: cfg.Region,
		Secure: secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 client")
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to S3 storage")
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, errors.Wrapf(ErrBucketNotFound, "bucket %q", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, errors.Wrapf(err, "failed to create bucket %q", cfg.Bucket)
		}
		logger.Info("bucket created", "bucket", cfg.Bucket)
	}

	logger.Info("S3 client initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return client, nil
}
