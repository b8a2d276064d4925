package landing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/lysyi3m/landing-comb/app/catalog"
	"github.com/lysyi3m/landing-comb/app/content"
)

type memorySource struct {
	feeds map[string][]content.Article
	fail  map[string]bool
}

func (s *memorySource) GetArticles(ctx context.Context, key string) ([]content.Article, error) {
	if s.fail[key] {
		return nil, errors.New("read failed")
	}
	// Fresh copy per read, as a decoded store document would be.
	return append([]content.Article(nil), s.feeds[key]...), nil
}

type memoryWriter struct {
	pages map[string][]byte
}

func (w *memoryWriter) UpsertLanding(ctx context.Context, key string, items content.Items) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if w.pages == nil {
		w.pages = make(map[string][]byte)
	}
	w.pages[key] = data
	return nil
}

func makeArticles(prefix string, n int) []content.Article {
	articles := make([]content.Article, n)
	for i := range articles {
		slug := fmt.Sprintf("%s-%d", prefix, i+1)
		articles[i] = content.Article{
			Title:     slug,
			Permalink: "https://example.com/2024/01/01/" + slug + "/",
		}
	}
	return articles
}

func typesOf(items content.Items) []content.ItemType {
	result := make([]content.ItemType, len(items))
	for i, item := range items {
		result[i] = item.ItemType()
	}
	return result
}

func newTestAssembler(feeds map[string][]content.Article) (*Assembler, *memoryWriter) {
	writer := &memoryWriter{}
	return NewAssembler(&memorySource{feeds: feeds}, writer, catalog.Default(), DefaultOptions()), writer
}

func TestFlatAdPlacement(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		articles int
		ads      []int
	}{
		{"twelve articles", 12, 12, []int{5, 11}},
		{"no trailing ad", 10, 10, []int{5}},
		{"capped at thirty", 35, 30, []int{5, 11, 17, 23, 29}},
		{"short feed", 3, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAssembler(map[string][]content.Article{"world": makeArticles("w", tt.count)})
			world, _ := catalog.Default().Category("World")

			page, ok := a.Build(context.Background(), world)
			if !ok {
				t.Fatal("Expected World to build")
			}
			if page.Key != "world-landing" {
				t.Errorf("Expected key 'world-landing', got '%s'", page.Key)
			}

			var ads []int
			articles := 0
			for i, item := range page.Items {
				switch item.(type) {
				case content.AdSlot:
					ads = append(ads, i)
				case *content.Article:
					articles++
				default:
					t.Errorf("Unexpected item %T in flat layout", item)
				}
			}

			if articles != tt.articles {
				t.Errorf("Expected %d articles, got %d", tt.articles, articles)
			}
			if fmt.Sprint(ads) != fmt.Sprint(tt.ads) {
				t.Errorf("Expected ads at %v, got %v", tt.ads, ads)
			}
			if first, ok := page.Items[0].(*content.Article); !ok || first.Type != content.ItemFeatured {
				t.Errorf("Expected first article featured, got %v", page.Items[0].ItemType())
			}
		})
	}
}

func TestStandardLayout(t *testing.T) {
	news := makeArticles("n", 7)
	topNews := append([]content.Article{news[0], news[5]}, makeArticles("t", 8)...)
	a, _ := newTestAssembler(map[string][]content.Article{
		"news":     news,
		"top-news": topNews,
		"malaysia": makeArticles("m", 2),
	})
	cat, _ := catalog.Default().Category("News")

	page, ok := a.Build(context.Background(), cat)
	if !ok {
		t.Fatal("Expected News to build")
	}
	if page.Key != "news-landing" {
		t.Errorf("Expected key 'news-landing', got '%s'", page.Key)
	}

	expected := []content.ItemType{
		content.ItemFeatured, content.ItemStandard, content.ItemStandard, content.ItemStandard, content.ItemStandard,
		content.ItemMore, content.ItemAd,
		content.ItemCardTitle,
		content.ItemFeatured, content.ItemStandard, content.ItemStandard, content.ItemStandard, content.ItemStandard, content.ItemStandard,
		content.ItemMore, content.ItemAd,
		content.ItemCardTitle, content.ItemFeatured, content.ItemStandard, content.ItemMore, content.ItemAd,
	}
	if got := typesOf(page.Items); fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Fatalf("Expected types %v, got %v", expected, got)
	}

	more := page.Items[5].(content.MoreLink)
	if more.Title != "News" || more.Permalink != "api/category/news" {
		t.Errorf("Unexpected main more link: %+v", more)
	}
	section := page.Items[7].(content.SectionTitle)
	if section.Title != "Top News" || section.Permalink != "api/category/top-news" {
		t.Errorf("Unexpected section title: %+v", section)
	}

	// n-6 is used by the Top News section since the main block only took five.
	if got := page.Items[8].(*content.Article).ResolveSlug(); got != "n-6" {
		t.Errorf("Expected first Top News article 'n-6', got '%s'", got)
	}
}

func TestNoDuplicateSlugs(t *testing.T) {
	shared := makeArticles("s", 10)
	a, _ := newTestAssembler(map[string][]content.Article{
		"super-highlight": shared[:1],
		"headlines":       shared,
		"top-news":        shared,
		"berita":          shared,
		"opinion":         append(shared, makeArticles("o", 3)...),
	})
	home, _ := catalog.Default().Category("Home")

	page, _ := a.Build(context.Background(), home)

	seen := make(map[string]bool)
	for _, item := range page.Items {
		article, ok := item.(*content.Article)
		if !ok {
			continue
		}
		slug := article.ResolveSlug()
		if seen[slug] {
			t.Errorf("Slug %s appears twice", slug)
		}
		seen[slug] = true
	}
	if len(seen) != 13 {
		t.Errorf("Expected 13 unique articles, got %d", len(seen))
	}
}

func TestHomeLayout(t *testing.T) {
	a, _ := newTestAssembler(map[string][]content.Article{
		"super-highlight": makeArticles("lead", 3),
		"headlines":       makeArticles("h", 6),
		"top-news":        makeArticles("t", 2),
	})
	home, _ := catalog.Default().Category("home")

	page, ok := a.Build(context.Background(), home)
	if !ok {
		t.Fatal("Expected Home to build")
	}
	if page.Key != "home-landing" {
		t.Errorf("Expected key 'home-landing', got '%s'", page.Key)
	}

	expected := []content.ItemType{
		content.ItemFeatured,
		content.ItemStandard, content.ItemStandard, content.ItemStandard, content.ItemStandard,
		content.ItemMore, content.ItemAd,
		content.ItemCardTitle, content.ItemFeatured, content.ItemStandard, content.ItemMore, content.ItemAd,
	}
	if got := typesOf(page.Items); fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Fatalf("Expected types %v, got %v", expected, got)
	}

	if got := page.Items[0].(*content.Article).ResolveSlug(); got != "lead-1" {
		t.Errorf("Expected lead article 'lead-1', got '%s'", got)
	}
	more := page.Items[5].(content.MoreLink)
	if more.Title != "Home" || more.Permalink != "api/category/headlines" {
		t.Errorf("Unexpected headlines more link: %+v", more)
	}
}

func TestAssembleIdempotent(t *testing.T) {
	feeds := map[string][]content.Article{
		"super-highlight": makeArticles("lead", 1),
		"headlines":       makeArticles("h", 8),
		"news":            makeArticles("n", 9),
		"top-news":        makeArticles("h", 12),
		"world":           makeArticles("w", 14),
	}
	a, writer := newTestAssembler(feeds)
	c := catalog.Default()
	categories := c.Categories()

	a.Assemble(context.Background(), categories)
	first := make(map[string]string, len(writer.pages))
	for key, data := range writer.pages {
		first[key] = string(data)
	}

	report := a.Assemble(context.Background(), categories)
	if len(report.Written) != len(categories) {
		t.Errorf("Expected %d pages written, got %d", len(categories), len(report.Written))
	}
	for key, data := range writer.pages {
		if first[key] != string(data) {
			t.Errorf("Landing %s changed between identical runs", key)
		}
	}
}

func TestAssembleSkipsUnmappedCategory(t *testing.T) {
	c, err := catalog.Parse([]byte(`
feeds:
  - {key: news, url: "https://example.com/news"}
categories:
  - {title: News}
  - {title: Ghost}
mapping:
  - {name: News, key: news}
`))
	if err != nil {
		t.Fatalf("Expected valid catalog, got: %v", err)
	}

	writer := &memoryWriter{}
	a := NewAssembler(&memorySource{feeds: map[string][]content.Article{"news": makeArticles("n", 2)}}, writer, c, DefaultOptions())

	report := a.Assemble(context.Background(), c.Categories())

	if len(report.Written) != 1 || report.Written[0] != "news-landing" {
		t.Errorf("Expected only news-landing written, got %v", report.Written)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "Ghost" {
		t.Errorf("Expected Ghost skipped, got %v", report.Skipped)
	}
}

func TestSectionWithUnreadableFeedIsOmitted(t *testing.T) {
	source := &memorySource{
		feeds: map[string][]content.Article{"news": makeArticles("n", 1), "malaysia": makeArticles("m", 1)},
		fail:  map[string]bool{"top-news": true},
	}
	a := NewAssembler(source, &memoryWriter{}, catalog.Default(), DefaultOptions())
	cat, _ := catalog.Default().Category("News")

	page, _ := a.Build(context.Background(), cat)

	for _, item := range page.Items {
		if section, ok := item.(content.SectionTitle); ok && section.Title == "Top News" {
			t.Error("Expected unreadable Top News section to be omitted")
		}
	}
}

func TestTag(t *testing.T) {
	article := func(typ content.ItemType) *content.Article {
		return &content.Article{Title: "x", Type: typ}
	}

	tests := []struct {
		name     string
		items    content.Items
		expected []content.ItemType
	}{
		{
			"section resets",
			content.Items{content.SectionTitle{Title: "S"}, article(""), article(""), content.MoreLink{}},
			[]content.ItemType{content.ItemCardTitle, content.ItemFeatured, content.ItemStandard, content.ItemMore},
		},
		{
			"section overrides existing types",
			content.Items{content.SectionTitle{}, article(content.ItemStandard), article(content.ItemFeatured), content.AdSlot{}},
			[]content.ItemType{content.ItemCardTitle, content.ItemFeatured, content.ItemStandard, content.ItemAd},
		},
		{
			"outside section",
			content.Items{article(""), article(""), content.AdSlot{}, article("")},
			[]content.ItemType{content.ItemFeatured, content.ItemStandard, content.ItemAd, content.ItemStandard},
		},
		{
			"outside section keeps existing type",
			content.Items{article("video"), article("")},
			[]content.ItemType{"video", content.ItemStandard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := typesOf(Tag(tt.items))
			if fmt.Sprint(got) != fmt.Sprint(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

type rawSource struct {
	feeds map[string]string
}

func (s *rawSource) GetArticles(ctx context.Context, key string) ([]content.Article, error) {
	return content.DecodeArticles([]byte(s.feeds[key]), nil)
}

func TestFlatLayoutKeepsSourceArticles(t *testing.T) {
	source := &rawSource{feeds: map[string]string{
		"world": `[
			{"id":1,"title":"Broken","permalink":"https://x/broken/","thumbnail":false},
			{"id":2,"title":"Clip","permalink":"https://x/clip/","thumbnail":"x","video-url":"keep-me"}
		]`,
	}}
	writer := &memoryWriter{}
	a := NewAssembler(source, writer, catalog.Default(), DefaultOptions())
	world, _ := catalog.Default().Category("World")

	report := a.Assemble(context.Background(), []catalog.CategoryDef{world})
	if len(report.Written) != 1 {
		t.Fatalf("Expected World written, got %+v", report)
	}

	var page []map[string]json.RawMessage
	if err := json.Unmarshal(writer.pages["world-landing"], &page); err != nil {
		t.Fatalf("Failed to decode landing: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("Expected only the decodable article, got %d items", len(page))
	}

	article := page[0]
	if string(article["video-url"]) != `"keep-me"` {
		t.Errorf("Expected video-url kept, got %s", article["video-url"])
	}
	if string(article["type"]) != `"featured"` {
		t.Errorf("Expected type featured, got %s", article["type"])
	}
	for _, field := range []string{"content", "excerpt", "date"} {
		if _, ok := article[field]; ok {
			t.Errorf("Expected no %s field to be added", field)
		}
	}
}
