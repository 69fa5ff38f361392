package convert

import (
	"fmt"
	"html"
	"strings"

	"news2kindle/internal/assemble"
)

// Kindle-safe head: serif body, plain styling, no external resources.
const htmlHead = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <title>%s</title>
  <style>
    body { font-family: serif; line-height: 1.4; }
    h1,h2,h3 { margin-top: 1.2em; }
    .muted { color: #555; }
    article { margin: 1em 0; }
  </style>
</head>
<body>
`

const htmlTail = `
</body>
</html>
`

// RenderHTML lays the assembled document out as a single HTML page, one
// heading per section and one article block per entry. Article bodies
// are inserted as-is (already sanitized by the normalizer); every other
// field is escaped.
func RenderHTML(doc *assemble.Document) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(htmlHead, html.EscapeString(doc.Title)))
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(doc.Title)))
	sb.WriteString(fmt.Sprintf(`<p class="muted">%s</p>`+"\n", doc.GeneratedAt.Format("Monday 2 January 2006")))

	idx := 0
	for _, sec := range doc.Sections {
		sb.WriteString(fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(sec.Title)))
		for _, art := range sec.Articles {
			idx++
			author := art.Author
			if author == "" {
				author = "Unknown"
			}
			sb.WriteString(fmt.Sprintf("<article id=\"post-%d\">\n", idx))
			sb.WriteString(fmt.Sprintf("<h3>%s</h3>\n", html.EscapeString(art.Title)))
			sb.WriteString(fmt.Sprintf(`<p class="muted"><small>By %s for <i>%s</i>, on %s at %s.</small></p>`+"\n",
				html.EscapeString(author),
				html.EscapeString(sec.Title),
				art.PublishedAt.Format("2 January 2006"),
				strings.ToLower(art.PublishedAt.Format("3:04 PM")),
			))
			sb.WriteString(art.Body)
			sb.WriteString("\n</article>\n")
		}
	}

	sb.WriteString(htmlTail)
	return sb.String()
}
