package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/Genoux/website/internal/registration"
)

// Page templates, each rendered inside the shared "base" layout.
const (
	pageLanding   = "landing"
	pageRegister  = "register"
	pageSuccess   = "success"
	pageCancelled = "cancelled"
	pageStatus    = "status"
)

var pageNames = []string{pageLanding, pageRegister, pageSuccess, pageCancelled, pageStatus}

// Renderer executes the server-rendered pages.
type Renderer struct {
	pages map[string]*template.Template
	clock func() time.Time
}

// NewRenderer parses base.tmpl together with every page template found in fsys.
func NewRenderer(fsys fs.FS, clock func() time.Time) (*Renderer, error) {
	if fsys == nil {
		return nil, fmt.Errorf("renderer: template filesystem is required")
	}
	if clock == nil {
		clock = time.Now
	}
	funcs := template.FuncMap{
		"json": func(v any) (string, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}
	base, err := template.New("base.tmpl").Funcs(funcs).ParseFS(fsys, "base.tmpl")
	if err != nil {
		return nil, fmt.Errorf("renderer: parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		layout, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("renderer: clone layout: %w", err)
		}
		page, err := layout.ParseFS(fsys, name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("renderer: parse %s: %w", name, err)
		}
		pages[name] = page
	}
	return &Renderer{pages: pages, clock: clock}, nil
}

// layout carries the fields every page reads from the base template.
type layout struct {
	Lang string
	Year int
	Copy registration.Copy
}

func (r *Renderer) layout(wording registration.Copy) layout {
	lang := "fr"
	if wording.Preset == registration.CopyEnglish {
		lang = "en"
	}
	return layout{Lang: lang, Year: r.clock().Year(), Copy: wording}
}

// Render buffers the page so template failures never produce half a document.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("renderer: unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("renderer: execute %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
