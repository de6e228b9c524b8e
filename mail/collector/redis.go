package collector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Store = (*RedisStore)(nil)

var tracer = otel.Tracer("github.com/pure-golang/mailer/mail/collector")

// DefaultKey is the list key used when RedisConfig.Key is empty.
const DefaultKey = "mail:collected"

// RedisConfig contains Redis connection parameters for the collector.
type RedisConfig struct {
	Addr        string        `envconfig:"MAIL_COLLECTOR_REDIS_ADDR" default:"localhost:6379"`
	Password    string        `envconfig:"MAIL_COLLECTOR_REDIS_PASSWORD"`
	DB          int           `envconfig:"MAIL_COLLECTOR_REDIS_DB" default:"0"`
	Key         string        `envconfig:"MAIL_COLLECTOR_REDIS_KEY" default:"mail:collected"`
	MaxRetries  int           `envconfig:"MAIL_COLLECTOR_REDIS_MAX_RETRIES" default:"3"`
	DialTimeout time.Duration `envconfig:"MAIL_COLLECTOR_REDIS_DIAL_TIMEOUT" default:"5s"`
}

// RedisStore keeps entries as JSON documents in a Redis list, so several
// processes can share one collection.
type RedisStore struct {
	client redis.Cmdable
	key    string
	db     int
}

// NewRedisStore creates a store on top of an existing client.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

// ConnectRedis opens a client for cfg and checks it with PING. The returned
// client must be closed by the caller.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "failed to ping redis")
	}
	store := NewRedisStore(client, cfg.Key)
	store.db = cfg.DB
	return store, client, nil
}

func (s *RedisStore) Append(ctx context.Context, entries ...Entry) error {
	ctx, span := s.startSpan(ctx, "Collect")
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			recordError(span, err)
			return errors.Wrap(err, "failed to encode entry")
		}
		values = append(values, data)
	}

	if err := s.client.RPush(ctx, s.key, values...).Err(); err != nil {
		recordError(span, err)
		return errors.Wrapf(err, "failed to push to %q", s.key)
	}
	span.SetAttributes(attribute.Int("mail.collected", len(entries)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		recordError(span, err)
		return nil, errors.Wrapf(err, "failed to read %q", s.key)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			recordError(span, err)
			return nil, errors.Wrap(err, "failed to decode entry")
		}
		entries = append(entries, e)
	}

	span.SetStatus(codes.Ok, "")
	return entries, nil
}

func (s *RedisStore) Reset(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Reset")
	defer span.End()

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		recordError(span, err)
		return errors.Wrapf(err, "failed to delete %q", s.key)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *RedisStore) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "redis"),
		attribute.String("redis.key", s.key),
	}
	if s.db > 0 {
		attrs = append(attrs, attribute.Int("redis.db", s.db))
	}
	return tracer.Start(ctx, "redis."+operation, trace.WithAttributes(attrs...))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

