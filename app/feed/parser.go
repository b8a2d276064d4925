package feed

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/lysyi3m/landing-comb/app/content"
)

// Parser turns RSS/Atom video playlists into CMS-shaped articles.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) ([]content.Article, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	articles := make([]content.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		articles = append(articles, p.normalizeItem(item))
	}
	return articles, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) content.Article {
	videoID := extensionValue(item.Extensions, "yt", "videoId")
	guid := cmp.Or(item.GUID, item.Link)

	id, _ := json.Marshal(cmp.Or(videoID, guid))

	article := content.Article{
		ID:         id,
		Title:      item.Title,
		Permalink:  item.Link,
		Slug:       videoID,
		Content:    cmp.Or(item.Content, item.Description, p.mediaDescription(item)),
		Author:     p.extractAuthor(item),
		Thumbnail:  p.extractThumbnail(item),
		Categories: item.Categories,
		VideoID:    videoID,
	}

	if item.PublishedParsed != nil {
		article.Date = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		article.Date = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	article.Excerpt = Excerpt(article.Content, DefaultExcerptWords)

	return article
}

func (p *Parser) extractAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return strings.TrimSpace(item.Authors[0].Name)
	}
	if item.Author != nil {
		return strings.TrimSpace(item.Author.Name)
	}
	return ""
}

func (p *Parser) extractThumbnail(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, group := range item.Extensions["media"]["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	for _, thumb := range item.Extensions["media"]["thumbnail"] {
		if url := thumb.Attrs["url"]; url != "" {
			return url
		}
	}

	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}
	return ""
}

func (p *Parser) mediaDescription(item *gofeed.Item) string {
	for _, group := range item.Extensions["media"]["group"] {
		for _, desc := range group.Children["description"] {
			if desc.Value != "" {
				return desc.Value
			}
		}
	}
	return ""
}

func extensionValue(extensions ext.Extensions, namespace, name string) string {
	for _, e := range extensions[namespace][name] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
