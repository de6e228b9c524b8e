package mail

import "time"

// MessageSettings holds defaults and forced additions applied to messages
// before sending.
//
// Plain fields are only used when the message does not have the value yet.
// Add* fields are always appended, whether or not the message already has a
// value. OverwriteHeaders always replaces the named headers.
type MessageSettings struct {
	Charset *string

	From       []Address
	AddFrom    []Address
	To         []Address
	AddTo      []Address
	ReplyTo    []Address
	AddReplyTo []Address
	Cc         []Address
	AddCc      []Address
	Bcc        []Address
	AddBcc     []Address

	Subject    *string
	Date       *time.Time
	Priority   *Priority
	ReturnPath *string
	Sender     *string
	TextBody   *string
	HTMLBody   *string

	Attachments    []*File
	AddAttachments []*File
	Embeddings     []*File
	AddEmbeddings  []*File

	// Headers is applied as a whole only when the message has no headers at all.
	Headers map[string][]string
	// OverwriteHeaders replaces same named message headers one by one.
	OverwriteHeaders map[string][]string
}

// String returns a pointer to s, for filling optional settings fields.
func String(s string) *string { return &s }

// ApplyTo returns message with the settings applied. The original message is
// not modified.
func (s *MessageSettings) ApplyTo(message *Message) *Message {
	if s == nil {
		return message
	}

	if s.Charset != nil && message.charset == nil {
		message = message.WithCharset(*s.Charset)
	}

	message = applyAddresses(message, s.From, s.AddFrom, (*Message).From, (*Message).WithFrom, (*Message).WithAddedFrom)
	message = applyAddresses(message, s.To, s.AddTo, (*Message).To, (*Message).WithTo, (*Message).WithAddedTo)
	message = applyAddresses(message, s.ReplyTo, s.AddReplyTo, (*Message).ReplyTo, (*Message).WithReplyTo, (*Message).WithAddedReplyTo)
	message = applyAddresses(message, s.Cc, s.AddCc, (*Message).Cc, (*Message).WithCc, (*Message).WithAddedCc)
	message = applyAddresses(message, s.Bcc, s.AddBcc, (*Message).Bcc, (*Message).WithBcc, (*Message).WithAddedBcc)

	if s.Subject != nil && message.subject == nil {
		message = message.WithSubject(*s.Subject)
	}
	if s.Date != nil && message.date == nil {
		message = message.WithDate(*s.Date)
	}
	if s.Priority != nil && message.priority == nil {
		message = message.WithPriority(*s.Priority)
	}
	if s.ReturnPath != nil && message.returnPath == nil {
		message = message.WithReturnPath(*s.ReturnPath)
	}
	if s.Sender != nil && message.sender == nil {
		message = message.WithSender(*s.Sender)
	}
	if s.TextBody != nil && message.textBody == nil {
		message = message.WithTextBody(*s.TextBody)
	}
	if s.HTMLBody != nil && message.htmlBody == nil {
		message = message.WithHTMLBody(*s.HTMLBody)
	}

	if s.Attachments != nil && message.attachments == nil {
		message = message.WithAttachments(s.Attachments...)
	}
	if s.AddAttachments != nil {
		message = message.WithAddedAttachments(s.AddAttachments...)
	}

	if s.Embeddings != nil && message.embeddings == nil {
		message = message.WithEmbeddings(s.Embeddings...)
	}
	if s.AddEmbeddings != nil {
		message = message.WithAddedEmbeddings(s.AddEmbeddings...)
	}

	if s.Headers != nil && message.headers == nil {
		message = message.WithHeaders(s.Headers)
	}
	for _, name := range sortedKeys(s.OverwriteHeaders) {
		message = message.WithHeader(name, s.OverwriteHeaders[name]...)
	}

	return message
}

func applyAddresses(
	message *Message,
	base, added []Address,
	get func(*Message) []Address,
	with, withAdded func(*Message, ...Address) *Message,
) *Message {
	if base != nil && get(message) == nil {
		message = with(message, base...)
	}
	if added != nil {
		message = withAdded(message, added...)
	}
	return message
}
