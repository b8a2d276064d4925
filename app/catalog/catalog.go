package catalog

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// HomeTitle identifies the home category regardless of case.
const HomeTitle = "HOME"

const allPrefix = "all-"

//go:embed default.yaml
var defaultCatalog []byte

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Catalog is the static taxonomy: feed table, category tree, display name mapping,
// notification topics and key aliases. It is immutable once loaded.
type Catalog struct {
	feeds          []FeedSource
	feedIndex      map[string]int
	categories     []CategoryDef
	mapping        []KeyMapping
	forward        map[string]string
	reverse        map[string][]string
	topics         []Topic
	landingAliases map[string]string
	touchedAliases map[string]string
}

// Load reads the catalog from file, or the embedded default when file is empty.
func Load(file string) (*Catalog, error) {
	if file == "" {
		return Parse(defaultCatalog)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", file, err)
	}
	return c, nil
}

func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range doc.Feeds {
		if doc.Feeds[i].Format == "" {
			doc.Feeds[i].Format = FormatJSON
		}
	}
	for i := range doc.Categories {
		if doc.Categories[i].Layout == "" {
			if fold(doc.Categories[i].Title) == HomeTitle {
				doc.Categories[i].Layout = LayoutHome
			} else {
				doc.Categories[i].Layout = LayoutStandard
			}
		}
	}

	if err := validate(&doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		feeds:          doc.Feeds,
		feedIndex:      make(map[string]int, len(doc.Feeds)),
		categories:     doc.Categories,
		mapping:        doc.Mapping,
		forward:        make(map[string]string, len(doc.Mapping)),
		reverse:        make(map[string][]string),
		topics:         doc.Topics,
		landingAliases: doc.LandingAliases,
		touchedAliases: doc.TouchedAliases,
	}

	for i, feed := range doc.Feeds {
		c.feedIndex[feed.Key] = i
	}
	for _, m := range doc.Mapping {
		name := fold(m.Name)
		if _, exists := c.forward[name]; exists {
			slog.Warn("Duplicate category mapping, first entry wins", "category", m.Name)
			continue
		}
		c.forward[name] = m.Key
		c.reverse[m.Key] = append(c.reverse[m.Key], m.Name)
	}

	return c, nil
}

func validate(doc *document) error {
	if len(doc.Feeds) == 0 {
		return fmt.Errorf("at least one feed is required")
	}

	seen := make(map[string]bool, len(doc.Feeds))
	for i, feed := range doc.Feeds {
		required := map[string]string{
			"feed key": feed.Key,
			"feed URL": feed.URL,
		}
		for fieldName, fieldValue := range required {
			if fieldValue == "" {
				return fmt.Errorf("%s is required at index %d", fieldName, i)
			}
		}
		if seen[feed.Key] {
			return fmt.Errorf("duplicate feed key: %s", feed.Key)
		}
		seen[feed.Key] = true

		if feed.Format != FormatJSON && feed.Format != FormatRSS {
			return fmt.Errorf("invalid format for feed %s: %s", feed.Key, feed.Format)
		}
	}

	for i, cat := range doc.Categories {
		if cat.Title == "" {
			return fmt.Errorf("category title is required at index %d", i)
		}
		switch cat.Layout {
		case LayoutHome, LayoutFlat, LayoutStandard:
		default:
			return fmt.Errorf("invalid layout for category %s: %s", cat.Title, cat.Layout)
		}
	}

	for i, m := range doc.Mapping {
		if m.Name == "" || m.Key == "" {
			return fmt.Errorf("mapping at index %d must have name and key", i)
		}
	}

	topicIDs := make(map[string]bool, len(doc.Topics))
	for i, topic := range doc.Topics {
		if topic.ID == "" {
			return fmt.Errorf("topic id is required at index %d", i)
		}
		if topicIDs[topic.ID] {
			return fmt.Errorf("duplicate topic: %s", topic.ID)
		}
		topicIDs[topic.ID] = true
	}

	return nil
}

// fold uppercases a display name for lookups. Casers are not safe for concurrent use.
func fold(name string) string {
	return cases.Upper(language.Und).String(name)
}

// NormalizeKey lowercases a CMS category name and collapses every run of
// non-alphanumerics to a hyphen: "Top News" becomes "top-news".
func NormalizeKey(name string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
}

// TouchedKey maps a changed post's category name to the feed key it touches.
func (c *Catalog) TouchedKey(name string) string {
	key := NormalizeKey(name)
	if alias, ok := c.touchedAliases[key]; ok {
		return alias
	}
	return key
}

// FeedKey resolves a display name to its feed key, case-insensitively.
func (c *Catalog) FeedKey(displayName string) (string, bool) {
	key, ok := c.forward[fold(displayName)]
	return key, ok
}

// DisplayName returns the first display name mapped to key.
func (c *Catalog) DisplayName(key string) (string, bool) {
	names := c.reverse[key]
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// DisplayNames returns every display name mapped to key, in table order.
func (c *Catalog) DisplayNames(key string) []string {
	return append([]string(nil), c.reverse[key]...)
}

func (c *Catalog) Feed(key string) (FeedSource, bool) {
	i, ok := c.feedIndex[key]
	if !ok {
		return FeedSource{}, false
	}
	return c.feeds[i], true
}

func (c *Catalog) Feeds() []FeedSource {
	return append([]FeedSource(nil), c.feeds...)
}

// FeedsFor returns the feeds whose key is in keys, in feed table order.
func (c *Catalog) FeedsFor(keys map[string]bool) []FeedSource {
	var result []FeedSource
	for _, feed := range c.feeds {
		if keys[feed.Key] {
			result = append(result, feed)
		}
	}
	return result
}

func (c *Catalog) Categories() []CategoryDef {
	return append([]CategoryDef(nil), c.categories...)
}

func (c *Catalog) Category(title string) (CategoryDef, bool) {
	want := fold(title)
	for _, cat := range c.categories {
		if fold(cat.Title) == want {
			return cat, true
		}
	}
	return CategoryDef{}, false
}

func (c *Catalog) Topics() []Topic {
	return append([]Topic(nil), c.topics...)
}

// LandingKey derives the stored key of a category's landing document from its feed key.
func (c *Catalog) LandingKey(mainKey string) string {
	key := mainKey + "-landing"
	if alias, ok := c.landingAliases[key]; ok {
		key = alias
	}
	return strings.TrimPrefix(key, allPrefix)
}

// AffectedCategories returns, in catalog order, the categories to rebuild for a set of touched
// feed keys: those listing a touched key's display name as a subcategory, those whose own
// feed key was touched, and always the home category.
func (c *Catalog) AffectedCategories(touched []string) []CategoryDef {
	names := make(map[string]bool)
	keys := make(map[string]bool, len(touched))
	for _, key := range touched {
		keys[key] = true
		for _, name := range c.reverse[key] {
			names[fold(name)] = true
		}
	}

	var result []CategoryDef
	for _, cat := range c.categories {
		if cat.Layout == LayoutHome || fold(cat.Title) == HomeTitle {
			result = append(result, cat)
			continue
		}
		if mainKey, ok := c.FeedKey(cat.Title); ok && keys[mainKey] {
			result = append(result, cat)
			continue
		}
		for _, sub := range cat.Subcategories {
			if names[fold(sub)] {
				result = append(result, cat)
				break
			}
		}
	}
	return result
}
