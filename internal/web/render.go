// Package web renders HTML pages from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/recipes/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer writes the page called name using data.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data map[string]any) error
}

// TemplateRenderer renders pages from the embedded templates. Every page
// template defines "content" and is executed through layout.html.
type TemplateRenderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"errs": func(errs map[string][]string, field string) []string {
		return errs[field]
	},
}

// NewTemplateRenderer parses all page templates once.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	tr := &TemplateRenderer{pages: map[string]*template.Template{}}
	for _, n := range names {
		page := strings.TrimSuffix(strings.TrimPrefix(n, "templates/"), ".html")
		if page == "layout" || page == "partials" {
			continue
		}
		t, err := template.Must(base.Clone()).ParseFS(templateFS, n)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", n, err)
		}
		tr.pages[page] = t
	}
	return tr, nil
}

func (tr *TemplateRenderer) Render(w http.ResponseWriter, status int, name string, data map[string]any) error {
	t, ok := tr.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Data returns the values every page needs: the current account and the
// pending flash messages, which are consumed by this call.
func Data(r *http.Request) map[string]any {
	ctx := r.Context()
	return map[string]any{
		"user":     session.CurrentUser(ctx),
		"messages": session.FromContext(ctx).PopFlashes(),
		"path":     r.URL.Path,
		"q":        "",
	}
}

// Pages renders templates and answers the error pages shared by handlers.
type Pages struct {
	Renderer Renderer
	Logger   *zap.SugaredLogger
}

// Render writes the named page, answering 500 if rendering fails.
func (p Pages) Render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if err := p.Renderer.Render(w, status, name, data); err != nil {
		p.Logger.Errorw("render failed", "template", name, "path", r.URL.Path, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (p Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusNotFound, "not_found", Data(r))
}

// ServerError logs err and answers 500.
func (p Pages) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	p.Logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
