package signals

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelector = "p, li, div, br, tr, h1, h2, h3, h4, h5, h6, section, article, ul, ol, table"

// PlainText renders an HTML job description as text, one block per line.
// Input without markup is only whitespace-normalised. Escaped markup, as some
// job boards return it, is unescaped first.
func PlainText(s string) (string, error) {
	if strings.Contains(s, "&lt;") {
		s = html.UnescapeString(s)
	}
	if !strings.Contains(s, "<") {
		return normalizeLines(s), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	return normalizeLines(doc.Text()), nil
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
