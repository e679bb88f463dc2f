package templates

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"sync"
	texttmpl "text/template"
)

// Rendered holds the materialized parts of one email template.
type Rendered struct {
	Subject   string
	EmailHTML string
	EmailText string
}

// Handle is a typed reference to a template, tying its ID to its data type.
type Handle[T any] struct {
	id string
}

// Expect creates a typed handle for a template ID (e.g., "auth.password_reset_code").
func Expect[T any](id string) Handle[T] { return Handle[T]{id: id} }

func (h Handle[T]) ID() string { return h.id }

// Engine parses templates from an fs.FS once and caches them. Each template
// file defines "subject", "email_text" and "email_html" blocks.
type Engine struct {
	fs    fs.FS
	mu    sync.RWMutex
	cache map[string]*compiled
}

type compiled struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

// NewEngine uses the embedded templates.
func NewEngine() *Engine {
	return NewEngineFS(EmbeddedFS)
}

func NewEngineFS(fsys fs.FS) *Engine {
	return &Engine{
		fs:    fsys,
		cache: make(map[string]*compiled),
	}
}

// Render is a typed helper that enforces the data type associated with the handle.
func Render[T any](e *Engine, h Handle[T], data T) (Rendered, error) {
	return e.RenderAny(h.ID(), data)
}

// RenderAny renders a template by ID. All three blocks are required.
func (e *Engine) RenderAny(id string, data any) (Rendered, error) {
	c, err := e.getCompiled(id)
	if err != nil {
		return Rendered{}, err
	}

	var out Rendered
	if out.Subject, err = execText(c.text, "subject", data); err != nil {
		return Rendered{}, fmt.Errorf("render subject (%s): %w", id, err)
	}
	if out.EmailText, err = execText(c.text, "email_text", data); err != nil {
		return Rendered{}, fmt.Errorf("render email_text (%s): %w", id, err)
	}
	if out.EmailHTML, err = execHTML(c.html, "email_html", data); err != nil {
		return Rendered{}, fmt.Errorf("render email_html (%s): %w", id, err)
	}
	return out, nil
}

func (e *Engine) getCompiled(id string) (*compiled, error) {
	e.mu.RLock()
	cached, ok := e.cache[id]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path := "files/" + id + ".tmpl"
	b, err := fs.ReadFile(e.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", path, err)
	}

	c, err := parseBoth(id, string(b))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[id] = c
	e.mu.Unlock()
	return c, nil
}

func parseBoth(id, content string) (*compiled, error) {
	tText, err := texttmpl.New(id).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse text blocks (%s): %w", id, err)
	}
	tHTML, err := htmltmpl.New(id).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse html block (%s): %w", id, err)
	}
	return &compiled{text: tText, html: tHTML}, nil
}

func execText(t *texttmpl.Template, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func execHTML(t *htmltmpl.Template, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
