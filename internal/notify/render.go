package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render produces the HTML body for e.
func Render(e Email) (string, error) {
	t := templates.Lookup(e.Template + ".html")
	if t == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, e.Template)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, e.Data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", e.Template, err)
	}
	return buf.String(), nil
}
