package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"skillsprint/internal/progress"
)

var templateDirs = []string{"pages", "auth", "sprints", "admin", "components"}

// LoadTemplates parses base.tmpl and every template under the page directories
func LoadTemplates(templatesPath string) (*template.Template, error) {
	files := []string{filepath.Join(templatesPath, "base.tmpl")}
	for _, dir := range templateDirs {
		pattern := filepath.Join(templatesPath, dir, "*.tmpl")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDay": func(d progress.Date) string {
			if d.IsZero() {
				return "never"
			}
			return d.String()
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"until": func(count int) []int {
			result := make([]int, count)
			for i := range result {
				result[i] = i + 1
			}
			return result
		},
		"year": func() int {
			return time.Now().Year()
		},
	}
}

// page returns the fields every layout reads
func (m *Middleware) page(r *http.Request, title string) Page {
	return Page{
		Title:     title + " - SkillSprint",
		User:      GetUserFromContext(r.Context()),
		CSRFToken: m.CSRFToken(r),
		Path:      r.URL.Path,
	}
}

// render executes name into a buffer so a template error still yields a clean 500
func render(w http.ResponseWriter, templates *template.Template, name string, status int, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
