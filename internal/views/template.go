package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/agpsystems/agp/context"
)

// Template wraps a parsed template with helper methods for rendering.
type Template struct {
	tmpl *template.Template
}

// TemplateData is the standard data structure passed to all templates.
type TemplateData struct {
	// CSRF hidden input for forms, filled by ExecuteHTTP
	CSRFField template.HTML

	// Flash messages
	Error   string
	Success string

	// Page-specific data
	Data any

	// Additional metadata
	Title       string
	Description string
	Canonical   string

	// Request info (useful for active nav highlighting)
	CurrentPath string

	IsDevelopment bool
}

// DefaultFuncMap returns the default template functions available in all templates.
func DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":    strings.ToUpper,
		"title":    toTitle,
		"truncate": truncate,

		"formatDateTime": formatDateTime,
		"timeAgo":        timeAgo,

		"formatNumber": formatNumber,
		"percentage":   percentage,

		"modeClass":   modeClass,
		"statusClass": statusClass,

		"default": defaultValue,
	}
}

// ParseFS parses the base layout, every partial, then the given pages from fsys.
//
// Usage:
//
//	tmpl, err := views.ParseFS(templates.FS, "pages/home.gohtml")
func ParseFS(fsys fs.FS, patterns ...string) (*Template, error) {
	tmpl := template.New("").Funcs(DefaultFuncMap())

	baseContent, err := fs.ReadFile(fsys, "layouts/base.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}
	if tmpl, err = tmpl.Parse(string(baseContent)); err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}

	partials, err := fs.Glob(fsys, "partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}

	for _, name := range append(partials, patterns...) {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		// pages define {{define "content"}}; partials define their own names
		if tmpl, err = tmpl.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
	}

	return &Template{tmpl: tmpl}, nil
}

// Execute renders the template to the given writer with the provided data.
func (t *Template) Execute(w io.Writer, data *TemplateData) error {
	return t.tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteHTTP renders the template with a 200 status.
func (t *Template) ExecuteHTTP(w http.ResponseWriter, r *http.Request, data *TemplateData) {
	t.ExecuteHTTPWithStatus(w, r, http.StatusOK, data)
}

// ExecuteHTTPWithStatus renders into a buffer first so a template error
// never leaves a half-written page behind.
func (t *Template) ExecuteHTTPWithStatus(w http.ResponseWriter, r *http.Request, status int, data *TemplateData) {
	if data == nil {
		data = &TemplateData{}
	}
	data.CurrentPath = r.URL.Path
	data.CSRFField = csrf.TemplateField(r)

	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		context.ContextGetLogger(r.Context()).WithError(err).Error("Template execution error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Template function implementations

// truncate cuts s to at most length runes, ending in "..." when cut.
func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}

// toTitle converts a string to title case.
// Example: "hello world" -> "Hello World"
func toTitle(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 3:04 PM UTC")
}

func timeAgo(t time.Time) string {
	return relativeTo(t, time.Now())
}

func relativeTo(t, now time.Time) string {
	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.UTC().Format("Jan 2, 2006")
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func percentage(value, total int) int {
	if total == 0 {
		return 0
	}
	return (value * 100) / total
}

func modeClass(mode string) string {
	switch mode {
	case "advanced":
		return "mode-advanced"
	case "minimal":
		return "mode-minimal"
	default:
		return "mode-standard"
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "status-error"
	case status >= 400:
		return "status-rejected"
	default:
		return "status-ok"
	}
}

func defaultValue(value, defaultVal any) any {
	if value == nil || value == "" || value == 0 {
		return defaultVal
	}
	return value
}
