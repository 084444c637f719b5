package ui

import (
	"embed"
	"html/template"
	"io"

	"github.com/keydesk/keydesk/internal/model"
)

//go:embed templates/*.html
var files embed.FS

var pages = template.Must(template.ParseFS(files, "templates/*.html"))

// LoginPage is the data for the login form.
type LoginPage struct {
	Title string
}

// DashboardPage is the data for the key table.
type DashboardPage struct {
	Title   string
	Keys    []model.APIKey
	BaseURL string
}

// CreatedPage shows a freshly created key and its one-time secret.
type CreatedPage struct {
	Title  string
	Key    *model.APIKey
	Secret string
}

// RenderLogin writes the login page.
func RenderLogin(w io.Writer) error {
	return pages.ExecuteTemplate(w, "login", LoginPage{Title: "Sign in"})
}

// RenderDashboard writes the dashboard listing keys.
func RenderDashboard(w io.Writer, keys []model.APIKey, baseURL string) error {
	return pages.ExecuteTemplate(w, "dashboard", DashboardPage{
		Title:   "Dashboard",
		Keys:    keys,
		BaseURL: baseURL,
	})
}

// RenderCreated writes the page that reveals a new secret.
func RenderCreated(w io.Writer, key *model.APIKey, secret string) error {
	return pages.ExecuteTemplate(w, "created", CreatedPage{
		Title:  "Key created",
		Key:    key,
		Secret: secret,
	})
}
