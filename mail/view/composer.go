package view

import (
	"context"

	"github.com/pure-golang/mailer/mail"
)

// Composer creates messages with bodies rendered from views and sends them
// through a Mailer.
type Composer struct {
	mailer   mail.Mailer
	renderer *Renderer
}

// NewComposer pairs mailer with renderer.
func NewComposer(mailer mail.Mailer, renderer *Renderer) *Composer {
	return &Composer{mailer: mailer, renderer: renderer}
}

// Mailer returns the mailer messages are sent through.
func (c *Composer) Mailer() mail.Mailer {
	return c.mailer
}

// Renderer returns the renderer in use.
func (c *Composer) Renderer() *Renderer {
	return c.renderer
}

// WithTemplate returns a composer rendering with template.
func (c *Composer) WithTemplate(template Template) *Composer {
	return &Composer{mailer: c.mailer, renderer: c.renderer.WithTemplate(template)}
}

// WithLocale returns a composer rendering localized views.
func (c *Composer) WithLocale(locale string) *Composer {
	return &Composer{mailer: c.mailer, renderer: c.renderer.WithLocale(locale)}
}

// Compose creates a new message. A nil view yields an empty message.
func (c *Composer) Compose(view *BodyView, params, layoutParams map[string]any) (*mail.Message, error) {
	message := mail.NewMessage()
	if view == nil {
		return message, nil
	}
	return c.renderer.AddToMessage(message, view, params, layoutParams)
}

// Send sends message through the mailer.
func (c *Composer) Send(ctx context.Context, message *mail.Message) error {
	return c.mailer.Send(ctx, message)
}
