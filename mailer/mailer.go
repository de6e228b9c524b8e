// Package mailer builds a mail.Mailer from environment configuration.
package mailer

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/pure-golang/mailer/env"
	"github.com/pure-golang/mailer/mail"
	"github.com/pure-golang/mailer/mail/collector"
	"github.com/pure-golang/mailer/mail/file"
	"github.com/pure-golang/mailer/mail/minio"
	"github.com/pure-golang/mailer/mail/noop"
	"github.com/pure-golang/mailer/mail/sendmail"
	"github.com/pure-golang/mailer/mail/smtp"
	"github.com/pure-golang/mailer/mail/stub"
)

// Provider selects the transport.
type Provider string

const (
	ProviderFile     Provider = "file"     // one .eml file per message
	ProviderSMTP     Provider = "smtp"     // SMTP delivery
	ProviderSendmail Provider = "sendmail" // local sendmail binary
	ProviderMinio    Provider = "minio"    // .eml objects in an S3-compatible bucket
	ProviderNoop     Provider = "noop"     // discards messages
	ProviderStub     Provider = "stub"     // records messages in memory
)

// CollectorStore selects where sent messages are collected for debugging.
type CollectorStore string

const (
	CollectorNone     CollectorStore = ""
	CollectorMemory   CollectorStore = "memory"
	CollectorRedis    CollectorStore = "redis"
	CollectorPostgres CollectorStore = "postgres"
)

// Config contains the provider choice and the default message settings.
// Address lists are comma separated, e.g. "App <app@example.com>, ops@example.com".
type Config struct {
	Provider  Provider       `envconfig:"MAIL_PROVIDER" default:"noop"`
	From      string         `envconfig:"MAIL_FROM"`
	ReplyTo   string         `envconfig:"MAIL_REPLY_TO"`
	AddBcc    string         `envconfig:"MAIL_ADD_BCC"`
	Charset   string         `envconfig:"MAIL_CHARSET"`
	Collector CollectorStore `envconfig:"MAIL_COLLECTOR"`
}

// Settings converts the defaults to mail.MessageSettings.
func (c Config) Settings() (*mail.MessageSettings, error) {
	s := &mail.MessageSettings{}

	var err error
	if s.From, err = parseList(c.From); err != nil {
		return nil, errors.Wrap(err, "MAIL_FROM")
	}
	if s.ReplyTo, err = parseList(c.ReplyTo); err != nil {
		return nil, errors.Wrap(err, "MAIL_REPLY_TO")
	}
	if s.AddBcc, err = parseList(c.AddBcc); err != nil {
		return nil, errors.Wrap(err, "MAIL_ADD_BCC")
	}
	if c.Charset != "" {
		s.Charset = mail.String(c.Charset)
	}
	return s, nil
}

// parseList returns nil for an empty value so the setting stays unset.
func parseList(s string) ([]mail.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return mail.ParseAddressList(s)
}

// Options contains options for building the mailer.
type Options struct {
	Dispatcher mail.Dispatcher
	Logger     *slog.Logger
}

// NewDefault reads Config from the environment and builds the mailer.
func NewDefault(options *Options) (mail.Mailer, error) {
	var cfg Config
	if err := env.InitConfig(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to init config")
	}
	return New(cfg, options)
}

// New builds the mailer for cfg. Transport specific settings (SMTP_*,
// S3_*, MAIL_FILE_PATH ...) are read from the environment.
func New(cfg Config, options *Options) (mail.Mailer, error) {
	if options == nil {
		options = &Options{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, errors.Wrap(err, "invalid default settings")
	}
	pipelineOptions := &mail.PipelineOptions{
		Settings:   settings,
		Dispatcher: options.Dispatcher,
		Logger:     options.Logger,
	}

	m, err := newProvider(cfg.Provider, options.Logger, pipelineOptions)
	if err != nil {
		return nil, err
	}
	return withCollector(m, cfg.Collector, options.Logger)
}

func newProvider(provider Provider, logger *slog.Logger, pipelineOptions *mail.PipelineOptions) (mail.Mailer, error) {
	switch provider {
	case ProviderFile:
		var cfg file.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to init file config")
		}
		return file.NewMailer(cfg, &file.TransportOptions{Logger: logger}, pipelineOptions), nil
	case ProviderSMTP:
		var cfg smtp.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to init smtp config")
		}
		return smtp.NewMailer(cfg, &smtp.TransportOptions{Logger: logger}, pipelineOptions), nil
	case ProviderSendmail:
		var cfg sendmail.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to init sendmail config")
		}
		return sendmail.NewMailer(cfg, &sendmail.TransportOptions{Logger: logger}, pipelineOptions), nil
	case ProviderMinio:
		var cfg minio.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to init minio config")
		}
		return minio.NewMailer(cfg, &minio.TransportOptions{Logger: logger}, pipelineOptions)
	case ProviderStub:
		m, _ := stub.NewMailer(pipelineOptions)
		return m, nil
	case ProviderNoop:
		pipelineOptions.Name = "noop"
		return mail.NewPipeline(noop.NewTransport(), pipelineOptions), nil
	default:
		return nil, errors.Errorf("unknown mail provider: %s", provider)
	}
}

func withCollector(m mail.Mailer, store CollectorStore, logger *slog.Logger) (mail.Mailer, error) {
	if store == CollectorNone {
		return m, nil
	}
	c, closer, err := NewCollector(store, logger)
	if err != nil {
		return nil, err
	}
	decorated := collector.NewMailer(m, c)
	if closer == nil {
		return decorated, nil
	}
	return &closingMailer{Mailer: decorated, closers: []io.Closer{closer}}, nil
}

// NewCollector opens the collector backend selected by store. Backend
// settings (MAIL_COLLECTOR_REDIS_*, MAIL_COLLECTOR_POSTGRES_*) are read from
// the environment. The returned closer is nil for the memory store.
func NewCollector(store CollectorStore, logger *slog.Logger) (*collector.Collector, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	options := &collector.Options{Logger: logger}

	switch store {
	case CollectorMemory:
		return collector.New(collector.NewMemoryStore(), options), nil, nil
	case CollectorRedis:
		var cfg collector.RedisConfig
		if err := env.InitConfig(&cfg); err != nil {
			return nil, nil, errors.Wrap(err, "failed to init collector config")
		}
		redisStore, client, err := collector.ConnectRedis(context.Background(), cfg)
		if err != nil {
			return nil, nil, err
		}
		return collector.New(redisStore, options), client, nil
	case CollectorPostgres:
		var cfg collector.PostgresConfig
		if err := env.InitConfig(&cfg); err != nil {
			return nil, nil, errors.Wrap(err, "failed to init collector config")
		}
		pgStore, pool, err := collector.ConnectPostgres(context.Background(), cfg)
		if err != nil {
			return nil, nil, err
		}
		return collector.New(pgStore, options), closerFunc(func() error {
			pool.Close()
			return nil
		}), nil
	default:
		return nil, nil, errors.Errorf("unknown mail collector: %q", store)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// closingMailer closes extra resources after the mailer.
type closingMailer struct {
	mail.Mailer
	closers []io.Closer
}

func (m *closingMailer) Close() error {
	err := m.Mailer.Close()
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close")
		}
	}
	return err
}
