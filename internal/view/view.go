// Package view renders the HTML screens from templates embedded in the
// binary. Every page is wrapped in layout.html.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/diewo77/go-proposals/internal/i18n"
	"github.com/diewo77/go-proposals/internal/middleware"
	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/render"
)

//go:embed templates/*.html
var files embed.FS

var tplCache = struct {
	sync.RWMutex
	m map[string]*template.Template
}{m: map[string]*template.Template{}}

// Funcs returns the func map bound to the language of r.
func Funcs(r *http.Request) template.FuncMap {
	lang := i18n.Default
	if r != nil {
		lang = middleware.LangFrom(r)
	}
	return template.FuncMap{
		"t":        func(code string) string { return i18n.T(lang, code) },
		"lang":     func() string { return lang },
		"money":    render.Money,
		"quantity": render.Quantity,
		"statusLabel": func(s models.ProposalStatus) string {
			return i18n.T(lang, "status_"+string(s))
		},
		"statuses": func() []models.ProposalStatus { return models.Statuses },
	}
}

// parse returns the layout+page set for name. Parsed sets are cached and
// never executed directly; Render works on clones so each request can bind
// its own language.
func parse(name string) (*template.Template, error) {
	tplCache.RLock()
	t, ok := tplCache.m[name]
	tplCache.RUnlock()
	if ok {
		return t, nil
	}
	t, err := template.New("layout.html").Funcs(Funcs(nil)).ParseFS(files, "templates/layout.html", "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t, nil
}

// Execute renders page name with data into w.
func Execute(w io.Writer, r *http.Request, name string, data map[string]any) error {
	base, err := parse(name)
	if err != nil {
		return err
	}
	t, err := base.Clone()
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	return t.Funcs(Funcs(r)).ExecuteTemplate(w, "layout.html", data)
}
