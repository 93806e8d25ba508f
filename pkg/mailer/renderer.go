package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"sync"
	"text/template"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// Rendered is the output of a template render.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Renderer turns frontmatter-prefixed markdown templates into HTML wrapped in a layout.
// Templates live at the root of the filesystem and layouts under layouts/.
type Renderer struct {
	fsys      fs.FS
	md        goldmark.Markdown
	templates sync.Map // name -> *parsedTemplate
	layouts   sync.Map // name -> *htmltemplate.Template
}

type parsedTemplate struct {
	body    *template.Template
	subject string
}

// NewRenderer creates a Renderer over fsys.
func NewRenderer(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys, md: goldmark.New()}
}

// Render executes the named template with data and wraps the HTML in layout.
func (r *Renderer) Render(layout, name string, data any) (*Rendered, error) {
	tmpl, err := r.template(name)
	if err != nil {
		return nil, err
	}

	var text bytes.Buffer
	if err := tmpl.body.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	var body bytes.Buffer
	if err := r.md.Convert(text.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	lay, err := r.layout(layout)
	if err != nil {
		return nil, err
	}
	var html bytes.Buffer
	err = lay.Execute(&html, map[string]any{
		"Subject": tmpl.subject,
		"Content": htmltemplate.HTML(body.String()), //nolint:gosec // markdown output of our own templates
	})
	if err != nil {
		return nil, fmt.Errorf("%w: layout %s: %v", ErrRenderFailed, layout, err)
	}

	return &Rendered{Subject: tmpl.subject, HTML: html.String(), Text: text.String()}, nil
}

func (r *Renderer) template(name string) (*parsedTemplate, error) {
	if v, ok := r.templates.Load(name); ok {
		return v.(*parsedTemplate), nil
	}

	raw, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	meta, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t, err := template.New(name).Option("missingkey=error").Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	parsed := &parsedTemplate{body: t, subject: meta.Subject}
	v, _ := r.templates.LoadOrStore(name, parsed)
	return v.(*parsedTemplate), nil
}

func (r *Renderer) layout(name string) (*htmltemplate.Template, error) {
	if v, ok := r.layouts.Load(name); ok {
		return v.(*htmltemplate.Template), nil
	}

	raw, err := fs.ReadFile(r.fsys, path.Join("layouts", name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	t, err := htmltemplate.New(name).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: layout %s: %v", ErrRenderFailed, name, err)
	}

	v, _ := r.layouts.LoadOrStore(name, t)
	return v.(*htmltemplate.Template), nil
}

type frontmatter struct {
	Subject string `yaml:"subject"`
}

// splitFrontmatter separates a leading "---" YAML block from the markdown body.
// Content without a leading delimiter is all body.
func splitFrontmatter(raw []byte) (frontmatter, []byte, error) {
	var meta frontmatter

	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	rest, ok := bytes.CutPrefix(raw, []byte("---\n"))
	if !ok {
		return meta, raw, nil
	}

	head, body, ok := bytes.Cut(rest, []byte("\n---"))
	if !ok {
		return meta, nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}
	body = bytes.TrimPrefix(body, []byte("\n"))

	if err := yaml.Unmarshal(head, &meta); err != nil {
		return meta, nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
	}
	return meta, body, nil
}
