package content

import (
	"encoding/json"
	"strings"
)

// Post is the CMS view of a published post, as returned by the latest-posts query.
type Post struct {
	Slug       string
	Title      string
	Date       string
	Modified   string
	Categories []string // display names, CMS order
}

// CachedPost is the fingerprinted record persisted between pipeline runs.
type CachedPost struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Modified   string   `json:"modified"`
	Checksum   string   `json:"checksum"`
	Categories []string `json:"categories"`
	Date       string   `json:"date"`
}

type Tag struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type RelatedArticle struct {
	ID          json.RawMessage `json:"id,omitempty"`
	Title       string          `json:"title"`
	Permalink   string          `json:"permalink"`
	Excerpt     string          `json:"excerpt"`
	Date        string          `json:"date"`
	Thumbnail   string          `json:"thumbnail"`
	DynamicLink string          `json:"dynamic-link,omitempty"`
}

// Article is a CMS-shaped feed entry. ID is kept raw because video lists use string ids
// while CMS feeds use numbers. A decoded article remembers its source object and encodes back
// to it, so fields not named here reach the landing output unchanged.
type Article struct {
	ID               json.RawMessage  `json:"id,omitempty"`
	Title            string           `json:"title"`
	Permalink        string           `json:"permalink"`
	Slug             string           `json:"slug,omitempty"`
	Content          string           `json:"content"`
	Excerpt          string           `json:"excerpt"`
	Date             string           `json:"date"`
	Author           string           `json:"author,omitempty"`
	Thumbnail        string           `json:"thumbnail"`
	Categories       []string         `json:"categories,omitempty"`
	FeaturedCategory string           `json:"featured-category,omitempty"`
	Tags             []Tag            `json:"tags,omitempty"`
	RelatedArticles  []RelatedArticle `json:"related-articles,omitempty"`
	DynamicLink      string           `json:"dynamic-link,omitempty"`
	VideoID          string           `json:"videoId,omitempty"`
	Type             ItemType         `json:"type,omitempty"`

	raw json.RawMessage
}

type articleFields Article

func (a *Article) UnmarshalJSON(data []byte) error {
	var fields articleFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*a = Article(fields)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the source object with only its type replaced. Articles built in code
// are encoded from their fields.
func (a Article) MarshalJSON() ([]byte, error) {
	if a.raw == nil {
		return json.Marshal(articleFields(a))
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(a.raw, &object); err != nil {
		return nil, err
	}
	if object == nil {
		object = make(map[string]json.RawMessage)
	}
	if a.Type != "" {
		encoded, err := json.Marshal(a.Type)
		if err != nil {
			return nil, err
		}
		object["type"] = encoded
	}
	return json.Marshal(object)
}

// DecodeArticles decodes a JSON array of articles one entry at a time. An entry that does not
// decode is passed to skip and left out; the rest are kept in order.
func DecodeArticles(data []byte, skip func(index int, err error)) ([]Article, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(entries))
	for i, entry := range entries {
		var article Article
		if err := json.Unmarshal(entry, &article); err != nil {
			if skip != nil {
				skip(i, err)
			}
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// ResolveSlug returns the article slug, falling back to the last non-empty permalink segment.
func (a *Article) ResolveSlug() string {
	if a.Slug != "" {
		return a.Slug
	}
	segments := strings.Split(a.Permalink, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
