// Package rfc822 renders messages as MIME documents.
package rfc822

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"net/textproto"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/pure-golang/mailer/mail"
)

const (
	defaultCharset     = "utf-8"
	defaultContentType = "application/octet-stream"
	base64LineLength   = 76
)

// ErrInvalidHeader is returned for a custom header whose name or value would
// break the header block.
var ErrInvalidHeader = errors.New("invalid header")

// entity is a MIME part: its headers plus the encoded body.
type entity struct {
	header textproto.MIMEHeader
	body   []byte
}

// ContentType is the media type of a rendered message.
const ContentType = "message/rfc822"

// Render renders message as an RFC 5322 document with MIME parts. Bcc is
// never written into the headers. now is used when the message has no date.
func Render(message *mail.Message, now time.Time) ([]byte, error) {
	charset, ok := message.Charset()
	if !ok || charset == "" {
		charset = defaultCharset
	}

	content, err := buildContent(message, charset)
	if err != nil {
		return nil, err
	}

	if content, err = wrapFiles("related", content, message.Embeddings(), "inline"); err != nil {
		return nil, err
	}
	if content, err = wrapFiles("mixed", content, message.Attachments(), "attachment"); err != nil {
		return nil, err
	}

	h := newHeaderWriter()
	h.set("From", formatAddresses(message.From()))
	if sender, ok := message.Sender(); ok {
		h.set("Sender", formatAddresses([]mail.Address{{Address: sender}}))
	}
	h.set("Reply-To", formatAddresses(message.ReplyTo()))
	h.set("To", formatAddresses(message.To()))
	h.set("Cc", formatAddresses(message.Cc()))
	if subject, ok := message.Subject(); ok {
		h.set("Subject", mime.QEncoding.Encode(defaultCharset, subject))
	}
	date, ok := message.Date()
	if !ok {
		date = now
	}
	h.set("Date", date.Format(time.RFC1123Z))
	if priority, ok := message.Priority(); ok {
		h.set("X-Priority", priority.Header())
	}
	h.set("MIME-Version", "1.0")

	custom := message.Headers()
	names := make([]string, 0, len(custom))
	for name := range custom {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := checkHeader(name, custom[name]); err != nil {
			return nil, err
		}
		h.set(name, custom[name]...)
	}

	for _, name := range sortedKeys(content.header) {
		h.set(name, content.header.Values(name)...)
	}

	var buf bytes.Buffer
	h.writeTo(&buf)
	buf.WriteString("\r\n")
	buf.Write(content.body)
	return buf.Bytes(), nil
}

// buildContent renders the text and HTML bodies, as multipart/alternative
// when both are present.
func buildContent(message *mail.Message, charset string) (entity, error) {
	text, hasText := message.TextBody()
	html, hasHTML := message.HTMLBody()

	switch {
	case hasText && hasHTML:
		plain, err := textEntity("plain", text, charset)
		if err != nil {
			return entity{}, err
		}
		rich, err := textEntity("html", html, charset)
		if err != nil {
			return entity{}, err
		}
		return multipartEntity("alternative", plain, rich)
	case hasHTML:
		return textEntity("html", html, charset)
	default:
		return textEntity("plain", text, charset)
	}
}

func textEntity(subtype, body, charset string) (entity, error) {
	encoded, err := encodeCharset(body, charset)
	if err != nil {
		return entity{}, err
	}

	var buf bytes.Buffer
	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write(encoded); err != nil {
		return entity{}, errors.Wrap(err, "failed to encode body")
	}
	if err := qp.Close(); err != nil {
		return entity{}, errors.Wrap(err, "failed to encode body")
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mime.FormatMediaType("text/"+subtype, map[string]string{"charset": charset}))
	header.Set("Content-Transfer-Encoding", "quoted-printable")
	return entity{header: header, body: buf.Bytes()}, nil
}

// encodeCharset converts body from UTF-8 to charset.
func encodeCharset(body, charset string) ([]byte, error) {
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil {
		return nil, errors.Wrapf(err, "unsupported charset %q", charset)
	}
	if enc == nil {
		return []byte(body), nil
	}
	encoded, err := enc.NewEncoder().String(body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode body as %s", charset)
	}
	return []byte(encoded), nil
}

// wrapFiles nests content and files into a multipart/<subtype> entity.
// Without files content is returned unchanged.
func wrapFiles(subtype string, content entity, files []*mail.File, disposition string) (entity, error) {
	if len(files) == 0 {
		return content, nil
	}
	parts := []entity{content}
	for _, f := range files {
		part, err := fileEntity(f, disposition)
		if err != nil {
			return entity{}, err
		}
		parts = append(parts, part)
	}
	return multipartEntity(subtype, parts...)
}

func fileEntity(f *mail.File, disposition string) (entity, error) {
	data, err := f.Bytes()
	if err != nil {
		return entity{}, errors.Wrap(err, "failed to read file")
	}

	name := fileName(f)
	contentType, ok := f.ContentType()
	if !ok {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	if typed := mime.FormatMediaType(contentType, map[string]string{"name": name}); typed != "" {
		contentType = typed
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "base64")
	header.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	if disposition == "inline" {
		header.Set("Content-ID", "<"+f.ID()+">")
	}
	return entity{header: header, body: encodeBase64(data)}, nil
}

func fileName(f *mail.File) string {
	if name, ok := f.Name(); ok {
		return name
	}
	if path, ok := f.Path(); ok {
		return filepath.Base(path)
	}
	return f.ID()
}

func multipartEntity(subtype string, parts ...entity) (entity, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		pw, err := w.CreatePart(p.header)
		if err != nil {
			return entity{}, errors.Wrap(err, "failed to create part")
		}
		if _, err := pw.Write(p.body); err != nil {
			return entity{}, errors.Wrap(err, "failed to write part")
		}
	}
	if err := w.Close(); err != nil {
		return entity{}, errors.Wrap(err, "failed to close multipart writer")
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", fmt.Sprintf("multipart/%s; boundary=%q", subtype, w.Boundary()))
	return entity{header: header, body: buf.Bytes()}, nil
}

func encodeBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)
	var buf bytes.Buffer
	for len(encoded) > base64LineLength {
		buf.WriteString(encoded[:base64LineLength])
		buf.WriteString("\r\n")
		encoded = encoded[base64LineLength:]
	}
	buf.WriteString(encoded)
	return buf.Bytes()
}

// formatAddresses renders a header address list; names are RFC 2047
// encoded when needed.
func formatAddresses(addrs []mail.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, (&netmail.Address{Name: a.Name, Address: a.Address}).String())
	}
	return strings.Join(parts, ", ")
}

// checkHeader rejects line breaks in values and names that are not RFC 5322
// field names.
func checkHeader(name string, values []string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidHeader, "empty header name")
	}
	for _, c := range name {
		if c <= ' ' || c > '~' || c == ':' {
			return errors.Wrapf(ErrInvalidHeader, "header name %q", name)
		}
	}
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return errors.Wrapf(ErrInvalidHeader, "line break in %s value", name)
		}
	}
	return nil
}

func sortedKeys(h textproto.MIMEHeader) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// headerWriter keeps header fields in insertion order. Setting a name
// again replaces its values in place.
type headerWriter struct {
	names  []string
	values map[string][]string
}

func newHeaderWriter() *headerWriter {
	return &headerWriter{values: map[string][]string{}}
}

func (h *headerWriter) set(name string, values ...string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	if len(values) == 0 || (len(values) == 1 && values[0] == "") {
		return
	}
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, name)
	}
	h.values[key] = values
}

func (h *headerWriter) writeTo(buf *bytes.Buffer) {
	for _, name := range h.names {
		for _, v := range h.values[textproto.CanonicalMIMEHeaderKey(name)] {
			buf.WriteString(name)
			buf.WriteString(": ")
			buf.WriteString(v)
			buf.WriteString("\r\n")
		}
	}
}
