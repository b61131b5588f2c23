// Package templates embeds the frontend's HTML templates and static assets.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"
	"unicode/utf8"

	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/validation"
)

const (
	baseTemplate     = "base.html"
	partialsTemplate = "partials.html"
)

//go:embed *.html
var FS embed.FS

//go:embed static
var static embed.FS

// Static returns the asset tree served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"add":                func(a, b int) int { return a + b },
	"sub":                func(a, b int) int { return a - b },
	"dict":               dict,
	"runeCount":          utf8.RuneCountInString,
	"formatSize":         domain.FormatFileSize,
	"formatTime":         func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	"bytesToMB":          func(b int64) int64 { return b / (1024 * 1024) },
	"mimeTypeExtensions": validation.MimeTypeExtensions,
}

func dict(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("invalid dict call: number of arguments must be even")
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict keys must be strings")
		}
		m[key] = values[i+1]
	}
	return m, nil
}

// Load parses every page in fsys together with the base layout and partials.
func Load(fsys fs.FS) (map[string]*template.Template, error) {
	pages, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, err
	}
	templates := make(map[string]*template.Template)
	for _, name := range pages {
		if name == baseTemplate || name == partialsTemplate {
			continue
		}
		tmpl, err := template.New(baseTemplate).Funcs(funcs).ParseFS(fsys,
			baseTemplate,
			name,
			partialsTemplate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

func MustLoad(fsys fs.FS) map[string]*template.Template {
	templates, err := Load(fsys)
	if err != nil {
		panic(err)
	}
	return templates
}
