// Package collector records the messages passing through a Mailer so they
// can be inspected in a debug panel or in tests.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pure-golang/mailer/mail"
)

// Entry is the collected view of one message.
type Entry struct {
	From     []string   `json:"from"`
	To       []string   `json:"to"`
	ReplyTo  []string   `json:"replyTo"`
	Cc       []string   `json:"cc"`
	Bcc      []string   `json:"bcc"`
	Subject  string     `json:"subject"`
	TextBody string     `json:"textBody"`
	HTMLBody string     `json:"htmlBody"`
	Charset  string     `json:"charset"`
	Date     *time.Time `json:"date,omitempty"`
	Raw      string     `json:"raw"`
}

// Summary aggregates the collected entries.
type Summary struct {
	Total      int `json:"total"`
	Recipients int `json:"recipients"`
}

// Store keeps collected entries in order.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	List(ctx context.Context) ([]Entry, error)
	Reset(ctx context.Context) error
}

// Options contains options for creating a Collector.
type Options struct {
	Logger *slog.Logger
}

// Collector converts messages to entries and keeps them in a Store.
type Collector struct {
	store  Store
	logger *slog.Logger
}

// New creates a Collector. A nil store means an in-memory one.
func New(store Store, options *Options) *Collector {
	if store == nil {
		store = NewMemoryStore()
	}
	if options == nil {
		options = &Options{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Collector{store: store, logger: options.Logger.WithGroup("mail_collector")}
}

// Collect records messages.
func (c *Collector) Collect(ctx context.Context, messages ...*mail.Message) error {
	if len(messages) == 0 {
		return nil
	}
	entries := lo.Map(messages, func(m *mail.Message, _ int) Entry {
		return NewEntry(m)
	})
	return errors.Wrap(c.store.Append(ctx, entries...), "failed to store collected messages")
}

// Collected returns all entries in collection order.
func (c *Collector) Collected(ctx context.Context) ([]Entry, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list collected messages")
	}
	return entries, nil
}

// Summary counts the collected entries.
func (c *Collector) Summary(ctx context.Context) (Summary, error) {
	entries, err := c.Collected(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Total: len(entries),
		Recipients: lo.SumBy(entries, func(e Entry) int {
			return len(e.To) + len(e.Cc) + len(e.Bcc)
		}),
	}, nil
}

// Reset drops all entries.
func (c *Collector) Reset(ctx context.Context) error {
	return errors.Wrap(c.store.Reset(ctx), "failed to reset collected messages")
}

// NewEntry converts message to an Entry.
func NewEntry(m *mail.Message) Entry {
	subject, _ := m.Subject()
	text, _ := m.TextBody()
	html, _ := m.HTMLBody()
	charset, _ := m.Charset()

	e := Entry{
		From:     formatAddresses(m.From()),
		To:       formatAddresses(m.To()),
		ReplyTo:  formatAddresses(m.ReplyTo()),
		Cc:       formatAddresses(m.Cc()),
		Bcc:      formatAddresses(m.Bcc()),
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
		Charset:  charset,
		Raw:      m.String(),
	}
	if date, ok := m.Date(); ok {
		e.Date = &date
	}
	return e
}

func formatAddresses(addrs []mail.Address) []string {
	return lo.Map(addrs, func(a mail.Address, _ int) string {
		return a.String()
	})
}
