package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/multitracer"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/logger"
)

var _ Store = (*PostgresStore)(nil)

// DefaultTable is the table used when PostgresConfig.Table is empty.
const DefaultTable = "mail_collected"

type PostgresConfig struct {
	User            string `envconfig:"MAIL_COLLECTOR_POSTGRES_USER" required:"true"`
	Password        string `envconfig:"MAIL_COLLECTOR_POSTGRES_PASSWORD" required:"true"`
	Host            string `envconfig:"MAIL_COLLECTOR_POSTGRES_HOST" required:"true"`
	Port            int    `envconfig:"MAIL_COLLECTOR_POSTGRES_PORT" default:"5432"`
	Name            string `envconfig:"MAIL_COLLECTOR_POSTGRES_DB_NAME" required:"true"`
	CertPath        string `envconfig:"MAIL_COLLECTOR_POSTGRES_SSL_CERT_PATH"`
	Table           string `envconfig:"MAIL_COLLECTOR_POSTGRES_TABLE" default:"mail_collected"`
	MaxOpenConns    int32  `envconfig:"MAIL_COLLECTOR_POSTGRES_MAX_OPEN_CONNECTIONS" default:"5"`
	MaxConnIdleTime int32  `envconfig:"MAIL_COLLECTOR_POSTGRES_MAX_CONNECTIONS_IDLE_TIME" default:"5"`
	// TraceLogLevel values: trace, debug, info, warn, error, none.
	TraceLogLevel string `envconfig:"MAIL_COLLECTOR_POSTGRES_TRACE_LOG_LEVEL" default:"error"`
}

// URL returns the connection string for c.
func (c PostgresConfig) URL() *url.URL {
	q := url.Values{"timezone": []string{"utc"}}
	if c.CertPath != "" {
		q.Set("sslmode", "verify-full")
		q.Set("sslrootcert", c.CertPath)
	} else {
		q.Set("sslmode", "disable")
	}

	host := c.Host
	if c.Port != 0 && c.Port != 5432 {
		host = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}

	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     host,
		Path:     c.Name,
		RawQuery: q.Encode(),
	}
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore keeps entries as jsonb rows ordered by a serial id.
type PostgresStore struct {
	db    pgQuerier
	table string
}

// NewPostgresStore creates a store on top of a pool. Call EnsureSchema
// before the first use on a fresh database.
func NewPostgresStore(db *pgxpool.Pool, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// ConnectPostgres opens a traced pool for cfg and creates the table. The
// returned pool must be closed by the caller.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, *pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL().String())
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse postgres config")
	}
	poolCfg.MaxConns = max(cfg.MaxOpenConns, 1)
	poolCfg.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleTime) * time.Second
	poolCfg.ConnConfig.Tracer = multitracer.New(
		otelpgx.NewTracer(),
		&tracelog.TraceLog{Logger: pgLogger{}, LogLevel: parseTraceLogLevel(cfg.TraceLogLevel)},
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to init postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "failed to ping postgres")
	}

	store := NewPostgresStore(pool, cfg.Table)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

// EnsureSchema creates the table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "EnsureSchema")
	defer span.End()

	query := "CREATE TABLE IF NOT EXISTS " + s.table + " (id BIGSERIAL PRIMARY KEY, entry JSONB NOT NULL)"
	if _, err := s.db.Exec(ctx, query); err != nil {
		recordError(span, err)
		return errors.Wrapf(err, "failed to create table %s", s.table)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, entries ...Entry) error {
	ctx, span := s.startSpan(ctx, "Collect")
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := "INSERT INTO " + s.table + " (entry) VALUES ($1)"
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			recordError(span, err)
			return errors.Wrap(err, "failed to encode entry")
		}
		batch.Queue(query, data)
	}

	results := s.db.SendBatch(ctx, batch)
	for range entries {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			recordError(span, err)
			return errors.Wrapf(err, "failed to insert into %s", s.table)
		}
	}
	if err := results.Close(); err != nil {
		recordError(span, err)
		return errors.Wrap(err, "failed to finish batch")
	}

	span.SetAttributes(attribute.Int("mail.collected", len(entries)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	rows, err := s.db.Query(ctx, "SELECT entry FROM "+s.table+" ORDER BY id")
	if err != nil {
		recordError(span, err)
		return nil, errors.Wrapf(err, "failed to read %s", s.table)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			return Entry{}, err
		}
		var e Entry
		err := json.Unmarshal(raw, &e)
		return e, err
	})
	if err != nil {
		recordError(span, err)
		return nil, errors.Wrap(err, "failed to decode entries")
	}

	span.SetStatus(codes.Ok, "")
	return entries, nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Reset")
	defer span.End()

	if _, err := s.db.Exec(ctx, "DELETE FROM "+s.table); err != nil {
		recordError(span, err)
		return errors.Wrapf(err, "failed to clear %s", s.table)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *PostgresStore) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "postgres."+operation, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", s.table),
	))
}

func parseTraceLogLevel(lvl string) tracelog.LogLevel {
	level, err := tracelog.LogLevelFromString(lvl)
	if err != nil {
		return tracelog.LogLevelNone
	}
	return level
}

// pgLogger routes pgx trace logs to the context logger.
type pgLogger struct{}

func (pgLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	attrs := make([]slog.Attr, 0, len(data))
	for k, v := range data {
		if d, ok := v.(time.Duration); ok && k == "time" {
			attrs = append(attrs, slog.Int64("duration_ms", d.Milliseconds()))
			continue
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.FromContext(ctx).WithGroup("postgres").LogAttrs(ctx, slogLevel(level), msg, attrs...)
}

func slogLevel(level tracelog.LogLevel) slog.Level {
	switch level {
	case tracelog.LogLevelTrace:
		return slog.LevelDebug - 1
	case tracelog.LogLevelDebug:
		return slog.LevelDebug
	case tracelog.LogLevelInfo:
		return slog.LevelInfo
	case tracelog.LogLevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
