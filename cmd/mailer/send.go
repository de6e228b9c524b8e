package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pure-golang/mailer/mail"
	"github.com/pure-golang/mailer/mail/view"
	"github.com/pure-golang/mailer/mailer"
)

type sendOptions struct {
	from, to, cc, bcc, replyTo []string
	subject                    string
	text, html                 string
	attachments                []string
	priority                   int
	headers                    []string

	viewPath   string
	htmlView   string
	textView   string
	htmlLayout string
	textLayout string
	locale     string
	params     map[string]string
}

func newSendCmd() *cobra.Command {
	o := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message through MAIL_PROVIDER",
		Example: `  mailer send --to ops@example.com --subject "Disk full" --text "/var is at 98%"
  mailer send --to user@example.com --view-path ./mail --html-view welcome --param name=Ann`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := mailer.NewDefault(nil)
			if err != nil {
				return err
			}
			defer m.Close()

			message, err := o.message(m)
			if err != nil {
				return err
			}
			if err := m.Send(cmd.Context(), message); err != nil {
				return errors.Wrap(err, "failed to send message")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sent to %d recipient(s)\n", len(message.To())+len(message.Cc())+len(message.Bcc()))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&o.from, "from", nil, "sender addresses")
	f.StringSliceVar(&o.to, "to", nil, "recipient addresses")
	f.StringSliceVar(&o.cc, "cc", nil, "carbon copy addresses")
	f.StringSliceVar(&o.bcc, "bcc", nil, "blind carbon copy addresses")
	f.StringSliceVar(&o.replyTo, "reply-to", nil, "reply-to addresses")
	f.StringVar(&o.subject, "subject", "", "message subject")
	f.StringVar(&o.text, "text", "", "plain text body")
	f.StringVar(&o.html, "html", "", "HTML body")
	f.StringSliceVar(&o.attachments, "attach", nil, "files to attach")
	f.IntVar(&o.priority, "priority", 0, "priority from 1 (highest) to 5 (lowest)")
	f.StringArrayVar(&o.headers, "header", nil, `custom header, "Name: value"`)
	f.StringVar(&o.viewPath, "view-path", "", "directory with body templates")
	f.StringVar(&o.htmlView, "html-view", "", "HTML body template name")
	f.StringVar(&o.textView, "text-view", "", "text body template name")
	f.StringVar(&o.htmlLayout, "html-layout", "", "HTML layout template name")
	f.StringVar(&o.textLayout, "text-layout", "", "text layout template name")
	f.StringVar(&o.locale, "locale", "", "template locale subdirectory")
	f.StringToStringVar(&o.params, "param", nil, "template parameters, key=value")

	return cmd
}

func (o *sendOptions) message(m mail.Mailer) (*mail.Message, error) {
	message := mail.NewMessage()

	if o.htmlView != "" || o.textView != "" {
		renderer := view.NewRenderer(view.Template{
			ViewPath:   o.viewPath,
			HTMLLayout: o.htmlLayout,
			TextLayout: o.textLayout,
		}).WithLocale(o.locale)

		params := make(map[string]any, len(o.params))
		for k, v := range o.params {
			params[k] = v
		}

		var err error
		message, err = view.NewComposer(m, renderer).Compose(&view.BodyView{HTML: o.htmlView, Text: o.textView}, params, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to compose message")
		}
	}

	var err error
	if message, err = withAddresses(message, o.from, (*mail.Message).WithFrom); err != nil {
		return nil, errors.Wrap(err, "--from")
	}
	if message, err = withAddresses(message, o.to, (*mail.Message).WithTo); err != nil {
		return nil, errors.Wrap(err, "--to")
	}
	if message, err = withAddresses(message, o.cc, (*mail.Message).WithCc); err != nil {
		return nil, errors.Wrap(err, "--cc")
	}
	if message, err = withAddresses(message, o.bcc, (*mail.Message).WithBcc); err != nil {
		return nil, errors.Wrap(err, "--bcc")
	}
	if message, err = withAddresses(message, o.replyTo, (*mail.Message).WithReplyTo); err != nil {
		return nil, errors.Wrap(err, "--reply-to")
	}

	if o.subject != "" {
		message = message.WithSubject(o.subject)
	}
	if o.text != "" {
		message = message.WithTextBody(o.text)
	}
	if o.html != "" {
		message = message.WithHTMLBody(o.html)
	}
	if o.priority != 0 {
		p := mail.Priority(o.priority)
		if !p.Valid() {
			return nil, errors.Errorf("invalid priority %d", o.priority)
		}
		message = message.WithPriority(p)
	}
	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.Errorf("invalid header %q", h)
		}
		message = message.WithAddedHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	for _, path := range o.attachments {
		f, err := mail.FromPath(path, filepath.Base(path), "")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to attach %s", path)
		}
		message = message.WithAddedAttachments(f)
	}

	return message, nil
}

func withAddresses(message *mail.Message, values []string, set func(*mail.Message, ...mail.Address) *mail.Message) (*mail.Message, error) {
	if len(values) == 0 {
		return message, nil
	}
	addresses := make([]mail.Address, 0, len(values))
	for _, v := range values {
		a, err := mail.ParseAddress(v)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return set(message, addresses...), nil
}
