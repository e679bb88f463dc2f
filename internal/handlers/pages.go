package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/BradenHooton/spendwise/internal/auth"
)

//go:embed views/*.tmpl
var viewsFS embed.FS

const layoutFile = "views/layout.tmpl"

// technicalDifficultiesMessage is shown when a store or dependency fails.
const technicalDifficultiesMessage = "We are experiencing technical difficulties. Please try again later."

// Page is the data passed to every page template. Flashes, CSRFToken and
// Session are filled in by Render.
type Page struct {
	Title  string
	Errors []string
	Form   map[string]string // values echoed back into the form
	Data   any

	Flashes   []auth.Flash
	CSRFToken string
	Session   *auth.Session
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2 Jan 2006 15:04")
	},
	"lower": strings.ToLower,
}

// NewRenderer parses every page once. A template error is a build defect,
// so it is reported at startup rather than per request.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	return newRendererFS(viewsFS, logger)
}

func newRendererFS(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	layout, err := template.New(path.Base(layoutFile)).Funcs(templateFuncs).ParseFS(fsys, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "views/*.tmpl")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = clone
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes the named page with the given status. It consumes the
// session's pending flashes and makes sure a CSRF token exists.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := rd.pages[name]
	if !ok {
		rd.logger.ErrorContext(r.Context(), "unknown page template", slog.String("page", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	token, err := auth.IssueCSRFToken(sess)
	if err != nil {
		rd.logger.ErrorContext(r.Context(), "failed to issue csrf token", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	page.CSRFToken = token
	page.Session = sess
	page.Flashes = sess.PopFlashes()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		rd.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("page", name),
			slog.Any("error", err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirectWithFlash queues a flash for the next page and sends a 303.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if sess := auth.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(kind, message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
