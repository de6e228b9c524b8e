// Package view composes message bodies from template files.
//
// View files live under Template.ViewPath and are named <view>.tmpl. HTML
// views are rendered with html/template, text views with text/template.
// A layout receives the layout parameters with "content" set to the
// rendered view.
package view

import (
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/pkg/errors"

	"github.com/pure-golang/mailer/mail"
	"github.com/pure-golang/mailer/mail/htmltext"
)

const fileExt = ".tmpl"

var (
	// ErrViewNotFound is returned when no file exists for a view name.
	ErrViewNotFound = errors.New("view not found")
	// ErrRenderFailed wraps template parse and execution errors.
	ErrRenderFailed = errors.New("render failed")
	// ErrEmptyView is returned by AddToMessage for a BodyView without views.
	ErrEmptyView = errors.New("body view is empty")
)

// Template locates view files. An empty layout name disables the layout.
type Template struct {
	ViewPath   string
	HTMLLayout string
	TextLayout string
}

// BodyView names the views rendered into a message body. When Text is
// empty the text body is derived from the rendered HTML.
type BodyView struct {
	HTML string
	Text string
}

// HTMLView returns a BodyView with an HTML view only.
func HTMLView(name string) *BodyView {
	return &BodyView{HTML: name}
}

// Renderer renders views of a Template. It is immutable; the With methods
// return modified copies.
type Renderer struct {
	template Template
	locale   string
}

// NewRenderer creates a Renderer for template.
func NewRenderer(template Template) *Renderer {
	return &Renderer{template: template}
}

// Template returns the template in use.
func (r *Renderer) Template() Template {
	return r.template
}

// Locale returns the locale in use, empty when unset.
func (r *Renderer) Locale() string {
	return r.locale
}

// WithTemplate returns a copy using template.
func (r *Renderer) WithTemplate(template Template) *Renderer {
	n := *r
	n.template = template
	return &n
}

// WithLocale returns a copy preferring views from the locale subdirectory.
func (r *Renderer) WithLocale(locale string) *Renderer {
	n := *r
	n.locale = locale
	return &n
}

// RenderHTML renders an HTML view and wraps it into the HTML layout.
func (r *Renderer) RenderHTML(view string, params, layoutParams map[string]any) (string, error) {
	content, err := r.renderHTMLFile(view, params)
	if err != nil {
		return "", err
	}
	if r.template.HTMLLayout == "" {
		return content, nil
	}
	// the view output is already escaped
	return r.renderHTMLFile(r.template.HTMLLayout, withContent(layoutParams, htmltemplate.HTML(content)))
}

// RenderText renders a text view and wraps it into the text layout.
func (r *Renderer) RenderText(view string, params, layoutParams map[string]any) (string, error) {
	content, err := r.renderTextFile(view, params)
	if err != nil {
		return "", err
	}
	if r.template.TextLayout == "" {
		return content, nil
	}
	return r.renderTextFile(r.template.TextLayout, withContent(layoutParams, content))
}

// AddToMessage renders body and returns message with the bodies set.
func (r *Renderer) AddToMessage(message *mail.Message, body *BodyView, params, layoutParams map[string]any) (*mail.Message, error) {
	if body == nil || (body.HTML == "" && body.Text == "") {
		return nil, errors.WithStack(ErrEmptyView)
	}

	var html string
	if body.HTML != "" {
		rendered, err := r.RenderHTML(body.HTML, params, layoutParams)
		if err != nil {
			return nil, err
		}
		html = rendered
		message = message.WithHTMLBody(html)
	}

	if body.Text != "" {
		text, err := r.RenderText(body.Text, params, layoutParams)
		if err != nil {
			return nil, err
		}
		return message.WithTextBody(text), nil
	}
	return message.WithTextBody(htmltext.Convert(html)), nil
}

func (r *Renderer) renderHTMLFile(view string, data map[string]any) (string, error) {
	path, err := r.resolve(view)
	if err != nil {
		return "", err
	}
	t, err := htmltemplate.ParseFiles(path)
	if err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "parse %s: %v", view, err)
	}
	var out strings.Builder
	if err := t.Execute(&out, data); err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "execute %s: %v", view, err)
	}
	return out.String(), nil
}

func (r *Renderer) renderTextFile(view string, data map[string]any) (string, error) {
	path, err := r.resolve(view)
	if err != nil {
		return "", err
	}
	t, err := texttemplate.ParseFiles(path)
	if err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "parse %s: %v", view, err)
	}
	var out strings.Builder
	if err := t.Execute(&out, data); err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "execute %s: %v", view, err)
	}
	return out.String(), nil
}

// resolve returns the file for view, preferring the locale subdirectory.
func (r *Renderer) resolve(view string) (string, error) {
	candidates := make([]string, 0, 2)
	if r.locale != "" {
		candidates = append(candidates, filepath.Join(r.template.ViewPath, r.locale, view+fileExt))
	}
	candidates = append(candidates, filepath.Join(r.template.ViewPath, view+fileExt))

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", errors.Wrapf(ErrViewNotFound, "view %q in %s", view, r.template.ViewPath)
}

// withContent copies params and sets "content".
func withContent(params map[string]any, content any) map[string]any {
	result := make(map[string]any, len(params)+1)
	for k, v := range params {
		result[k] = v
	}
	result["content"] = content
	return result
}
