package http

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

var templateFuncs = template.FuncMap{
	"categoryColor": entities.CategoryColor,
	"statusColor":   entities.StatusColor,
	"progress":      entities.ProgressPercentage,
	"completed":     entities.CompletedCount,
	"formatDue": func(due *entities.Date, today entities.Date) string {
		if due == nil {
			return ""
		}
		return entities.FormatDueDate(*due, today)
	},
}

// Templates renders the server-side pages. Every page is parsed together
// with the shared layout.
type Templates struct {
	pages map[string]*template.Template
}

// NewTemplates parses the embedded page templates.
func NewTemplates() (*Templates, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	t := &Templates{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		page, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		t.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}

	return t, nil
}

// Render implements echo.Renderer.
func (t *Templates) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	page, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return page.ExecuteTemplate(w, "layout", data)
}
