package mail

import (
	"log/slog"
	"strings"
	"time"
)

// Message is an immutable email message.
//
// Every With* method returns a new *Message and leaves the receiver untouched.
// Unset fields are distinct from empty ones: getters of optional scalar fields
// report presence with a second return value, and absent address lists,
// attachments and embeddings are nil.
type Message struct {
	charset    *string
	from       []Address
	to         []Address
	replyTo    []Address
	cc         []Address
	bcc        []Address
	subject    *string
	date       *time.Time
	priority   *Priority
	returnPath *string
	sender     *string
	textBody   *string
	htmlBody   *string

	attachments []*File
	embeddings  []*File
	headers     *headerSet

	err error
}

// NewMessage creates an empty message.
func NewMessage() *Message {
	return &Message{}
}

func (m *Message) clone() *Message {
	c := *m
	c.from = cloneAddresses(m.from)
	c.to = cloneAddresses(m.to)
	c.replyTo = cloneAddresses(m.replyTo)
	c.cc = cloneAddresses(m.cc)
	c.bcc = cloneAddresses(m.bcc)
	c.attachments = cloneFiles(m.attachments)
	c.embeddings = cloneFiles(m.embeddings)
	c.headers = m.headers.clone()
	return &c
}

func optional[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func ptr[T any](v T) *T {
	return &v
}

// Charset returns the message charset.
func (m *Message) Charset() (string, bool) { return optional(m.charset) }

// WithCharset returns a copy with the charset set.
func (m *Message) WithCharset(charset string) *Message {
	n := m.clone()
	n.charset = ptr(charset)
	return n
}

// From returns the sender addresses, nil when unset.
func (m *Message) From() []Address { return cloneAddresses(m.from) }

// WithFrom returns a copy with the sender addresses replaced.
func (m *Message) WithFrom(from ...Address) *Message {
	n := m.clone()
	n.from = setAddresses(from)
	return n
}

// WithAddedFrom returns a copy with from appended to the sender addresses.
func (m *Message) WithAddedFrom(from ...Address) *Message {
	n := m.clone()
	n.from = mergeAddresses(m.from, setAddresses(from))
	return n
}

// To returns the receivers, nil when unset.
func (m *Message) To() []Address { return cloneAddresses(m.to) }

// WithTo returns a copy with the receivers replaced.
func (m *Message) WithTo(to ...Address) *Message {
	n := m.clone()
	n.to = setAddresses(to)
	return n
}

// WithAddedTo returns a copy with to appended to the receivers.
func (m *Message) WithAddedTo(to ...Address) *Message {
	n := m.clone()
	n.to = mergeAddresses(m.to, setAddresses(to))
	return n
}

// ReplyTo returns the reply-to addresses, nil when unset.
func (m *Message) ReplyTo() []Address { return cloneAddresses(m.replyTo) }

// WithReplyTo returns a copy with the reply-to addresses replaced.
func (m *Message) WithReplyTo(replyTo ...Address) *Message {
	n := m.clone()
	n.replyTo = setAddresses(replyTo)
	return n
}

// WithAddedReplyTo returns a copy with replyTo appended.
func (m *Message) WithAddedReplyTo(replyTo ...Address) *Message {
	n := m.clone()
	n.replyTo = mergeAddresses(m.replyTo, setAddresses(replyTo))
	return n
}

// Cc returns the copy receivers, nil when unset.
func (m *Message) Cc() []Address { return cloneAddresses(m.cc) }

// WithCc returns a copy with the copy receivers replaced.
func (m *Message) WithCc(cc ...Address) *Message {
	n := m.clone()
	n.cc = setAddresses(cc)
	return n
}

// WithAddedCc returns a copy with cc appended.
func (m *Message) WithAddedCc(cc ...Address) *Message {
	n := m.clone()
	n.cc = mergeAddresses(m.cc, setAddresses(cc))
	return n
}

// Bcc returns the hidden copy receivers, nil when unset.
func (m *Message) Bcc() []Address { return cloneAddresses(m.bcc) }

// WithBcc returns a copy with the hidden copy receivers replaced.
func (m *Message) WithBcc(bcc ...Address) *Message {
	n := m.clone()
	n.bcc = setAddresses(bcc)
	return n
}

// WithAddedBcc returns a copy with bcc appended.
func (m *Message) WithAddedBcc(bcc ...Address) *Message {
	n := m.clone()
	n.bcc = mergeAddresses(m.bcc, setAddresses(bcc))
	return n
}

// Subject returns the subject.
func (m *Message) Subject() (string, bool) { return optional(m.subject) }

// WithSubject returns a copy with the subject set.
func (m *Message) WithSubject(subject string) *Message {
	n := m.clone()
	n.subject = ptr(subject)
	return n
}

// Date returns the date.
func (m *Message) Date() (time.Time, bool) { return optional(m.date) }

// WithDate returns a copy with the date set.
func (m *Message) WithDate(date time.Time) *Message {
	n := m.clone()
	n.date = ptr(date)
	return n
}

// Priority returns the priority.
func (m *Message) Priority() (Priority, bool) { return optional(m.priority) }

// WithPriority returns a copy with the priority set.
func (m *Message) WithPriority(priority Priority) *Message {
	n := m.clone()
	n.priority = ptr(priority)
	return n
}

// ReturnPath returns the bounce address.
func (m *Message) ReturnPath() (string, bool) { return optional(m.returnPath) }

// WithReturnPath returns a copy with the bounce address set.
func (m *Message) WithReturnPath(address string) *Message {
	n := m.clone()
	n.returnPath = ptr(address)
	return n
}

// Sender returns the actual sender address.
func (m *Message) Sender() (string, bool) { return optional(m.sender) }

// WithSender returns a copy with the actual sender address set.
func (m *Message) WithSender(address string) *Message {
	n := m.clone()
	n.sender = ptr(address)
	return n
}

// TextBody returns the plain text body.
func (m *Message) TextBody() (string, bool) { return optional(m.textBody) }

// WithTextBody returns a copy with the plain text body set.
func (m *Message) WithTextBody(text string) *Message {
	n := m.clone()
	n.textBody = ptr(text)
	return n
}

// HTMLBody returns the HTML body.
func (m *Message) HTMLBody() (string, bool) { return optional(m.htmlBody) }

// WithHTMLBody returns a copy with the HTML body set.
func (m *Message) WithHTMLBody(html string) *Message {
	n := m.clone()
	n.htmlBody = ptr(html)
	return n
}

// Attachments returns the attached files, nil when unset.
func (m *Message) Attachments() []*File { return cloneFiles(m.attachments) }

// WithAttachments returns a copy with the attachments replaced.
func (m *Message) WithAttachments(files ...*File) *Message {
	n := m.clone()
	n.attachments = setFiles(files)
	return n
}

// WithAddedAttachments returns a copy with files appended to the attachments.
func (m *Message) WithAddedAttachments(files ...*File) *Message {
	n := m.clone()
	n.attachments = append(setFiles(m.attachments), files...)
	return n
}

// WithoutAttachments returns a copy with the attachments unset.
func (m *Message) WithoutAttachments() *Message {
	n := m.clone()
	n.attachments = nil
	return n
}

// Embeddings returns the embedded files, nil when unset.
func (m *Message) Embeddings() []*File { return cloneFiles(m.embeddings) }

// WithEmbeddings returns a copy with the embeddings replaced.
func (m *Message) WithEmbeddings(files ...*File) *Message {
	n := m.clone()
	n.embeddings = setFiles(files)
	return n
}

// WithAddedEmbeddings returns a copy with files appended to the embeddings.
func (m *Message) WithAddedEmbeddings(files ...*File) *Message {
	n := m.clone()
	n.embeddings = append(setFiles(m.embeddings), files...)
	return n
}

// WithoutEmbeddings returns a copy with the embeddings unset.
func (m *Message) WithoutEmbeddings() *Message {
	n := m.clone()
	n.embeddings = nil
	return n
}

// Header returns all values of the named header, or an empty list.
func (m *Message) Header(name string) []string {
	return m.headers.get(name)
}

// Headers returns all custom headers, nil when unset.
func (m *Message) Headers() map[string][]string {
	return m.headers.toMap()
}

// WithHeader returns a copy with the named header replaced by values.
func (m *Message) WithHeader(name string, values ...string) *Message {
	n := m.clone()
	if n.headers == nil {
		n.headers = newHeaderSet(map[string][]string{})
	}
	n.headers.set(name, values)
	return n
}

// WithAddedHeader returns a copy with value appended to the named header.
func (m *Message) WithAddedHeader(name, value string) *Message {
	n := m.clone()
	if n.headers == nil {
		n.headers = newHeaderSet(map[string][]string{})
	}
	n.headers.add(name, value)
	return n
}

// WithHeaders returns a copy with all custom headers replaced.
// A nil map unsets the headers.
func (m *Message) WithHeaders(headers map[string][]string) *Message {
	n := m.clone()
	n.headers = newHeaderSet(headers)
	return n
}

// Field names a message field that can be reset with Without.
type Field int

const (
	FieldCharset Field = iota
	FieldFrom
	FieldTo
	FieldReplyTo
	FieldCc
	FieldBcc
	FieldSubject
	FieldDate
	FieldPriority
	FieldReturnPath
	FieldSender
	FieldTextBody
	FieldHTMLBody
	FieldAttachments
	FieldEmbeddings
	FieldHeaders
)

// Without returns a copy with the given fields unset, so that settings
// applied later treat them as not provided.
func (m *Message) Without(fields ...Field) *Message {
	n := m.clone()
	for _, f := range fields {
		switch f {
		case FieldCharset:
			n.charset = nil
		case FieldFrom:
			n.from = nil
		case FieldTo:
			n.to = nil
		case FieldReplyTo:
			n.replyTo = nil
		case FieldCc:
			n.cc = nil
		case FieldBcc:
			n.bcc = nil
		case FieldSubject:
			n.subject = nil
		case FieldDate:
			n.date = nil
		case FieldPriority:
			n.priority = nil
		case FieldReturnPath:
			n.returnPath = nil
		case FieldSender:
			n.sender = nil
		case FieldTextBody:
			n.textBody = nil
		case FieldHTMLBody:
			n.htmlBody = nil
		case FieldAttachments:
			n.attachments = nil
		case FieldEmbeddings:
			n.embeddings = nil
		case FieldHeaders:
			n.headers = nil
		}
	}
	return n
}

// Error returns the error recorded for a failed batch send.
func (m *Message) Error() error { return m.err }

// WithError returns a copy carrying err.
func (m *Message) WithError(err error) *Message {
	n := m.clone()
	n.err = err
	return n
}

// String renders custom headers as "Name: value" lines followed by the text body.
func (m *Message) String() string {
	var lines []string
	m.headers.each(func(name string, values []string) {
		for _, v := range values {
			lines = append(lines, name+": "+v)
		}
	})
	text, _ := m.TextBody()
	lines = append(lines, text)
	return strings.Join(lines, "\n")
}

// setAddresses stores a set (non-nil) copy of a.
func setAddresses(a []Address) []Address {
	result := make([]Address, len(a))
	copy(result, a)
	return result
}

// LogValue reports a short summary of the message to slog. Recipients are
// logged as counts only.
func (m *Message) LogValue() slog.Value {
	subject, _ := m.Subject()
	attrs := []slog.Attr{
		slog.String("subject", subject),
		slog.String("from", formatAddressList(m.from)),
		slog.Int("to", len(m.to)),
	}
	if len(m.cc) > 0 {
		attrs = append(attrs, slog.Int("cc", len(m.cc)))
	}
	if len(m.bcc) > 0 {
		attrs = append(attrs, slog.Int("bcc", len(m.bcc)))
	}
	if len(m.attachments) > 0 {
		attrs = append(attrs, slog.Int("attachments", len(m.attachments)))
	}
	return slog.GroupValue(attrs...)
}
