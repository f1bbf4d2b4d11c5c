// Package view renders the server-side HTML pages: login, signup, dashboard
// and the invoice print view. Templates are embedded in the binary; pages
// without a doctype are wrapped in layout.html.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/i18n"
)

//go:embed templates/*.html
var embedded embed.FS

var (
	mu       sync.RWMutex
	source   fs.FS = mustSub(embedded, "templates")
	devMode  bool
	tplCache = map[string]*template.Template{}

	langResolver = func(r *http.Request) string { return i18n.LangFromContext(r.Context()) }
	// permission resolvers are set by the host app so templates can check auth
	canProfileResolver func(*http.Request, string, string) bool
	isAdminResolver    func(*http.Request) bool
)

func mustSub(f fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// SetSource replaces the template file system, e.g. os.DirFS("view/templates")
// during development. dev disables the parse cache.
func SetSource(f fs.FS, dev bool) {
	mu.Lock()
	defer mu.Unlock()
	if f != nil {
		source = f
	}
	devMode = dev
	tplCache = map[string]*template.Template{}
}

// SetCanProfileResolver sets a callback used by templates to check profile-level permissions.
func SetCanProfileResolver(f func(*http.Request, string, string) bool) {
	if f != nil {
		canProfileResolver = f
	}
}

// SetIsAdminResolver sets a callback used by templates to determine superadmin users.
func SetIsAdminResolver(f func(*http.Request) bool) {
	if f != nil {
		isAdminResolver = f
	}
}

// SetLangResolver allows the host app to provide a custom language resolver.
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

// Funcs returns the func map for r: translations in the request language,
// permission checks and number formatting.
func Funcs(r *http.Request) template.FuncMap {
	lang := i18n.DefaultLang
	if r != nil {
		lang = langResolver(r)
	}
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		// can checks profile-level permission (resource, action) -> bool
		"can": func(resource, action string) bool {
			if canProfileResolver == nil || r == nil {
				return false
			}
			return canProfileResolver(r, resource, action)
		},
		"isAdmin": func() bool {
			if isAdminResolver == nil || r == nil {
				return false
			}
			return isAdminResolver(r)
		},
		"money": Money,
		"qty":   Quantity,
		"year":  func() int { return time.Now().Year() },
		// dict builds a map for sub-templates: {{ template "x" (dict "K" v) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				if key, ok := values[i].(string); ok {
					m[key] = values[i+1]
				}
			}
			return m
		},
	}
}

// Money formats an amount in lempiras with thousands separators, e.g. L 1,234.50.
func Money(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "L " + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// Quantity prints a quantity without trailing zeros.
func Quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parse builds the template for name, wrapped in layout.html unless the page
// is a full document.
func parse(name string) (*template.Template, error) {
	mu.RLock()
	t, ok := tplCache[name]
	src, dev := source, devMode
	mu.RUnlock()
	if ok {
		return t, nil
	}

	content, err := fs.ReadFile(src, name)
	if err != nil {
		return nil, err
	}
	// Placeholder funcs; Render swaps in the per-request ones on a clone.
	funcs := Funcs(nil)
	if bytes.Contains(bytes.ToLower(content), []byte("<!doctype")) {
		t, err = template.New(name).Funcs(funcs).Parse(string(content))
	} else {
		t, err = template.New("layout.html").Funcs(funcs).ParseFS(src, "layout.html", name)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if !dev {
		mu.Lock()
		tplCache[name] = t
		mu.Unlock()
	}
	return t, nil
}

// Render executes the page with status 200.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus executes the page into a buffer and writes it with status.
// Nothing is written when the template fails, so the caller can still send
// an error response.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	base, err := parse(name)
	if err != nil {
		return err
	}
	t, err := base.Clone()
	if err != nil {
		return err
	}
	t.Funcs(Funcs(r))

	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
