// Package templates holds the embedded HTML pages.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed *.tmpl
var files embed.FS

// Load parses every embedded template
func Load() (*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"percent": func(v float64) string {
			return fmt.Sprintf("%.0f%%", v)
		},
		"formatTime": func(t time.Time) string {
			return t.Local().Format("15:04")
		},
		"megabytes": func(n int64) string {
			return fmt.Sprintf("%.0fMB", float64(n)/1024/1024)
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(files, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}
