// Package view holds the server-rendered dashboard templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Template names passed to gin's c.HTML.
const (
	PageError     = "error.html"
	PageDashboard = "dashboard.html"
	PageForm      = "form.html"
	PageConfirm   = "confirm.html"
	PageLookup    = "lookup.html"
)

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"dec": func(i int) int { return i - 1 },
	"pageURL": func(chatID fmt.Stringer, page int) string {
		return fmt.Sprintf("/%s/page/%d", chatID, page)
	},
}

// Templates parses every embedded page.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}

// MustTemplates is Templates for program start-up.
func MustTemplates() *template.Template {
	t, err := Templates()
	if err != nil {
		panic(err)
	}
	return t
}
