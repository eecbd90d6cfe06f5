package digest

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"sort"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/models"
)

// GroupBySection buckets comments by section. Sections are sorted by id and
// comments keep their chronological order.
func GroupBySection(comments []models.PendingComment) []models.Section {
	index := make(map[string]int)
	var sections []models.Section
	for _, c := range comments {
		i, ok := index[c.SectionID]
		if !ok {
			i = len(sections)
			index[c.SectionID] = i
			sections = append(sections, models.Section{ID: c.SectionID})
		}
		sections[i].Comments = append(sections[i].Comments, c)
	}

	sort.Slice(sections, func(i, j int) bool { return sections[i].ID < sections[j].ID })
	for _, s := range sections {
		sort.SliceStable(s.Comments, func(i, j int) bool {
			return s.Comments[i].CreatedAt.Before(s.Comments[j].CreatedAt)
		})
	}
	return sections
}

// CommentIDs returns the ids of every comment in sections.
func CommentIDs(sections []models.Section) []uuid.UUID {
	var ids []uuid.UUID
	for _, s := range sections {
		for _, c := range s.Comments {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// DetailLevelLabel is the German label shown for a detail level.
func DetailLevelLabel(level string) string {
	switch level {
	case "citizen":
		return "Bürger:innen"
	case "administration":
		return "Verwaltung"
	case "research":
		return "Forschung"
	default:
		return level
	}
}

// View is the data the mail templates render.
type View struct {
	Date         time.Time
	Total        int
	Sections     []models.Section
	DashboardURL string
}

var funcs = map[string]any{
	"level": DetailLevelLabel,
	"when":  func(t time.Time) string { return t.UTC().Format("02.01.2006 15:04 UTC") },
	"day":   func(t time.Time) string { return t.Format("02.01.2006") },
}

var htmlTemplate = htmltemplate.Must(htmltemplate.New("digest").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="de">
<head><meta charset="utf-8"><title>Neue Kommentare</title></head>
<body style="font-family:Arial,sans-serif;color:#2c3e50;max-width:720px;margin:0 auto">
<h1 style="color:#1b4f72;font-size:1.4rem">Neue Kommentare am {{day .Date}}</h1>
<p>Seit dem letzten Versand {{if eq .Total 1}}ist 1 neuer Kommentar{{else}}sind {{.Total}} neue Kommentare{{end}} eingegangen.</p>
{{range .Sections}}
<h2 style="font-size:1.1rem;border-bottom:1px solid #cfe0ea;padding-bottom:4px">Abschnitt {{.ID}} ({{len .Comments}})</h2>
{{range .Comments}}
<div style="margin:0 0 14px;padding:10px 14px;background:#f4f9fc;border-left:3px solid #1b6ca8">
  <p style="margin:0 0 6px;font-size:.9rem;color:#5d6d7e"><strong>{{.AuthorName}}</strong> &lt;{{.AuthorEmail}}&gt; · Schritt {{.StepID}} · {{level .DetailLevel}} · {{when .CreatedAt}}</p>
  <p style="margin:0;white-space:pre-wrap">{{.Text}}</p>
</div>
{{end}}
{{end}}
{{if .DashboardURL}}<p><a href="{{.DashboardURL}}">Zum Dashboard</a></p>{{end}}
</body>
</html>
`))

var textTemplate = texttemplate.Must(texttemplate.New("digest").Funcs(funcs).Parse(`Neue Kommentare am {{day .Date}} ({{.Total}})
{{range .Sections}}
== Abschnitt {{.ID}} ({{len .Comments}}) ==
{{range .Comments}}
{{.AuthorName}} <{{.AuthorEmail}}>, Schritt {{.StepID}}, {{level .DetailLevel}}, {{when .CreatedAt}}
{{.Text}}
{{end}}{{end}}{{if .DashboardURL}}
Dashboard: {{.DashboardURL}}
{{end}}`))

// Render produces the HTML and plain text bodies of the digest mail.
func Render(v View) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := htmlTemplate.Execute(&hb, v); err != nil {
		return "", "", fmt.Errorf("render digest html: %w", err)
	}
	if err := textTemplate.Execute(&tb, v); err != nil {
		return "", "", fmt.Errorf("render digest text: %w", err)
	}
	return hb.String(), strings.TrimSpace(tb.String()) + "\n", nil
}
