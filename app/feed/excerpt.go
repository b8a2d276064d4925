package feed

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultExcerptWords = 40

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Excerpt returns the visible text of an HTML fragment, cut to maxWords words.
func Excerpt(html string, maxWords int) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, iframe, figure, noscript").Remove()

	var b strings.Builder
	writeText(&b, doc.Selection)

	words := strings.Fields(b.String())
	if maxWords > 0 && len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "…"
	}
	return strings.Join(words, " ")
}

// writeText writes text nodes in document order, padding block elements so adjacent
// paragraphs do not run together.
func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		name := goquery.NodeName(child)
		if name == "#text" {
			b.WriteString(child.Text())
			return
		}
		if blockElements[name] {
			b.WriteByte(' ')
		}
		writeText(b, child)
		if blockElements[name] {
			b.WriteByte(' ')
		}
	})
}

// backfillExcerpts fills empty "excerpt" fields of article objects from their "content".
// Entries that are not objects are kept as they are. The input is returned untouched when
// nothing needed filling.
func backfillExcerpts(entries []json.RawMessage) ([]json.RawMessage, bool) {
	changed := false
	for i, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}

		var excerpt, html string
		_ = json.Unmarshal(fields["excerpt"], &excerpt)
		if strings.TrimSpace(excerpt) != "" {
			continue
		}
		if err := json.Unmarshal(fields["content"], &html); err != nil || html == "" {
			continue
		}

		text := Excerpt(html, DefaultExcerptWords)
		if text == "" {
			continue
		}

		encoded, err := json.Marshal(text)
		if err != nil {
			continue
		}
		fields["excerpt"] = encoded

		updated, err := json.Marshal(fields)
		if err != nil {
			continue
		}
		entries[i] = updated
		changed = true
	}
	return entries, changed
}
