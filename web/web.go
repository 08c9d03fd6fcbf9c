// Package web holds the HTML templates of the notes pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses the embedded templates.
func Templates() (*template.Template, error) {
	t, err := template.New("").ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded templates: %w", err)
	}
	return t, nil
}

// LoadDir parses every .html file in dir. It is used instead of the
// embedded set when templates are edited live.
func LoadDir(dir string) (*template.Template, error) {
	t, err := template.New("").ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse templates in %s: %w", dir, err)
	}
	return t, nil
}
