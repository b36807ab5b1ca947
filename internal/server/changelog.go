// ABOUTME: Server-rendered HTML changelog page
// ABOUTME: Renders each entry's description as Markdown with goldmark

package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/2389/sitever/internal/assets"
	"github.com/2389/sitever/internal/versionstore"
)

type changelogEntryView struct {
	Version     string
	Date        string
	Type        string
	Description template.HTML
	Changes     []string
}

type changelogPage struct {
	Version     string
	ReleaseDate string
	Entries     []changelogEntryView
}

// handleChangelogPage handles GET /changelog
func (s *Server) handleChangelogPage(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetVersion(r.Context())
	if err != nil {
		http.Error(w, "changelog unavailable", http.StatusInternalServerError)
		return
	}
	entries, err := s.service.GetChangelog(r.Context())
	if err != nil {
		http.Error(w, "changelog unavailable", http.StatusInternalServerError)
		return
	}

	page := changelogPage{
		Version:     info.Version,
		ReleaseDate: info.ReleaseDate,
		Entries:     make([]changelogEntryView, 0, len(entries)),
	}
	for _, e := range entries {
		page.Entries = append(page.Entries, s.entryView(e))
	}

	var buf bytes.Buffer
	if err := assets.ChangelogTemplate.Execute(&buf, page); err != nil {
		s.logger.Error("failed to render changelog", "error", err)
		http.Error(w, "changelog unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}

func (s *Server) entryView(e versionstore.ChangelogEntry) changelogEntryView {
	// goldmark drops raw HTML unless html.WithUnsafe is set.
	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(e.Description), &htmlBuf); err != nil {
		s.logger.Error("failed to convert markdown", "version", e.Version, "error", err)
		htmlBuf.Reset()
		htmlBuf.WriteString(template.HTMLEscapeString(e.Description))
	}

	return changelogEntryView{
		Version:     e.Version,
		Date:        e.Date,
		Type:        string(e.Type),
		Description: template.HTML(htmlBuf.String()),
		Changes:     e.Changes,
	}
}
