package formatter

import (
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/oakwood-commons/listx/pkg/item"
)

// StatusPublished gets the success badge; every other status gets a warning.
const StatusPublished = "Published"

type htmlFormatter struct{}

// Items renders one card per item inside a list container.
func (htmlFormatter) Items(items []item.Item) (string, error) {
	var b strings.Builder
	b.WriteString(`<div class="item-list">` + "\n")
	if len(items) == 0 {
		b.WriteString(`<div class="text-center text-muted py-4">` + EmptyPlaceholder + "</div>\n")
	}
	for _, it := range items {
		writeCard(&b, it)
	}
	b.WriteString("</div>\n")
	return b.String(), nil
}

func (htmlFormatter) Error(error) string {
	return `<div class="item-list">` + "\n" +
		`<div class="text-center text-danger py-4">` + ErrorPlaceholder + "</div>\n</div>\n"
}

func writeCard(b *strings.Builder, it item.Item) {
	text := func(field string) string {
		return html.EscapeString(strings.Join(item.Text(it, field), ", "))
	}
	link := item.String(it, "relpermalink")
	if link == "" {
		link = "#"
	}

	b.WriteString(`<div class="card">` + "\n")
	b.WriteString(`  <h5 class="card-title"><a href="` + html.EscapeString(link) + `">` + text("title") + "</a></h5>\n")
	if authors := text("authors"); authors != "" {
		b.WriteString(`  <p class="card-authors">` + authors + "</p>\n")
	}
	if journal := text("journal"); journal != "" {
		if date := text("publication_date"); date != "" {
			journal += ", " + date
		}
		b.WriteString(`  <p class="card-journal">` + journal + "</p>\n")
	}
	if desc := item.String(it, "desc"); desc != "" {
		b.WriteString(`  <div class="card-desc">` + strings.TrimSpace(Markdown(desc)) + "</div>\n")
	}
	if status := item.String(it, "status"); status != "" {
		badge := "text-bg-warning"
		if status == StatusPublished {
			badge = "text-bg-success"
		}
		b.WriteString(`  <span class="badge ` + badge + `">` + html.EscapeString(status) + "</span>\n")
	}
	if paper := item.String(it, "paper_url"); paper != "" {
		b.WriteString(`  <a class="card-paper" href="` + html.EscapeString(paper) + `">Paper</a>` + "\n")
	}
	if date := text("date_formatted"); date != "" {
		b.WriteString(`  <small class="text-muted">Last updated: ` + date + "</small>\n")
	}
	b.WriteString("</div>\n")
}

// Markdown renders md to HTML. Raw HTML in the source is dropped.
func Markdown(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank | mdhtml.SkipHTML,
	})
	return string(markdown.Render(doc, renderer))
}
