// ABOUTME: Embedded HTML templates for server-rendered pages
// ABOUTME: Currently the public changelog page

package assets

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// ChangelogTemplate renders the changelog page.
var ChangelogTemplate = template.Must(template.ParseFS(templateFS, "templates/changelog.html"))
