package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if len(c.Feeds()) != 43 {
		t.Errorf("Expected 43 feeds, got %d", len(c.Feeds()))
	}

	feed, ok := c.Feed("borneo+")
	if !ok {
		t.Fatal("Expected borneo+ feed to exist")
	}
	if feed.Format != FormatJSON {
		t.Errorf("Expected default format json, got %s", feed.Format)
	}
	if !strings.HasSuffix(feed.URL, "/nation/sabahsarawak/feed/json/app/") {
		t.Errorf("Unexpected borneo+ URL: %s", feed.URL)
	}

	for _, cat := range c.Categories() {
		if _, ok := c.FeedKey(cat.Title); !ok {
			t.Errorf("Category %s has no feed key", cat.Title)
		}
		for _, sub := range cat.Subcategories {
			key, ok := c.FeedKey(sub)
			if !ok {
				t.Errorf("Subcategory %s of %s has no feed key", sub, cat.Title)
				continue
			}
			if _, ok := c.Feed(key); !ok {
				t.Errorf("Subcategory %s maps to unknown feed %s", sub, key)
			}
		}
	}

	home, ok := c.Category("home")
	if !ok || home.Layout != LayoutHome {
		t.Errorf("Expected home category with home layout, got %+v", home)
	}
	world, _ := c.Category("World")
	if world.Layout != LayoutFlat {
		t.Errorf("Expected World to be flat, got %s", world.Layout)
	}
	news, _ := c.Category("News")
	if news.Layout != LayoutStandard {
		t.Errorf("Expected News to be standard, got %s", news.Layout)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Top News":          "top-news",
		"Borneo+":           "borneo-",
		"South East Asia":   "south-east-asia",
		"FMT  --  Exclusive": "fmt-exclusive",
		"Top BM":            "top-bm",
		"":                  "",
	}

	for input, expected := range tests {
		if got := NormalizeKey(input); got != expected {
			t.Errorf("NormalizeKey(%q): expected %q, got %q", input, expected, got)
		}
	}
}

func TestTouchedKey(t *testing.T) {
	c := Default()

	tests := map[string]string{
		"Highlight":       "headlines",
		"Top News":        "top-news",
		"Borneo+":         "borneo+",
		"Top BM":          "berita",
		"Super Highlight": "super-highlight",
	}
	for input, expected := range tests {
		if got := c.TouchedKey(input); got != expected {
			t.Errorf("TouchedKey(%q): expected %q, got %q", input, expected, got)
		}
	}
}

func TestFeedKeyCaseInsensitive(t *testing.T) {
	c := Default()

	for _, name := range []string{"Top News", "TOP NEWS", "top news"} {
		key, ok := c.FeedKey(name)
		if !ok || key != "top-news" {
			t.Errorf("FeedKey(%q): expected top-news, got %q (%v)", name, key, ok)
		}
	}

	if _, ok := c.FeedKey("Nonexistent"); ok {
		t.Error("Expected unmapped name to miss")
	}
}

func TestDisplayNamesReverseOrder(t *testing.T) {
	c := Default()

	names := c.DisplayNames("world")
	if len(names) != 2 || names[0] != "World" || names[1] != "Top World" {
		t.Errorf("Expected [World Top World], got %v", names)
	}

	name, ok := c.DisplayName("top-news")
	if !ok || name != "Top News" {
		t.Errorf("Expected Top News, got %q", name)
	}

	if _, ok := c.DisplayName("nope"); ok {
		t.Error("Expected missing key to miss")
	}
}

func TestLandingKey(t *testing.T) {
	c := Default()

	tests := map[string]string{
		"headlines":   "home-landing",
		"top-news":    "news-landing",
		"fmt-news":    "videos-landing",
		"all-opinion": "opinion-landing",
		"world":       "world-landing",
		"property":    "property-landing",
	}
	for mainKey, expected := range tests {
		if got := c.LandingKey(mainKey); got != expected {
			t.Errorf("LandingKey(%q): expected %q, got %q", mainKey, expected, got)
		}
	}
}

func TestAffectedCategories(t *testing.T) {
	c := Default()

	titles := func(cats []CategoryDef) []string {
		var out []string
		for _, cat := range cats {
			out = append(out, cat.Title)
		}
		return out
	}

	got := titles(c.AffectedCategories([]string{"top-news"}))
	if strings.Join(got, ",") != "Home,News" {
		t.Errorf("Expected [Home News], got %v", got)
	}

	got = titles(c.AffectedCategories([]string{"world"}))
	if strings.Join(got, ",") != "Home,World" {
		t.Errorf("Expected [Home World], got %v", got)
	}

	got = titles(c.AffectedCategories([]string{"football", "tempatan"}))
	if strings.Join(got, ",") != "Home,Berita,Sports" {
		t.Errorf("Expected [Home Berita Sports], got %v", got)
	}

	got = titles(c.AffectedCategories([]string{"unknown-key"}))
	if strings.Join(got, ",") != "Home" {
		t.Errorf("Expected only Home, got %v", got)
	}
}

func TestFeedsForKeepsTableOrder(t *testing.T) {
	c := Default()

	feeds := c.FeedsFor(map[string]bool{"tennis": true, "super-highlight": true, "missing": true})
	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(feeds))
	}
	if feeds[0].Key != "super-highlight" || feeds[1].Key != "tennis" {
		t.Errorf("Expected table order, got %s, %s", feeds[0].Key, feeds[1].Key)
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()

	content := `
feeds:
  - key: videos
    url: https://example.com/playlist.xml
    format: rss
categories:
  - title: Videos
mapping:
  - {name: Videos, key: videos}
topics:
  - id: video
    enabled: false
    categories: [Videos]
`
	file := filepath.Join(tempDir, "catalog.yaml")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(file)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	feed, ok := c.Feed("videos")
	if !ok || feed.Format != FormatRSS {
		t.Errorf("Expected rss feed, got %+v", feed)
	}
	cat, _ := c.Category("videos")
	if cat.Layout != LayoutStandard {
		t.Errorf("Expected standard layout, got %s", cat.Layout)
	}
	if len(c.Topics()) != 1 || c.Topics()[0].Enabled {
		t.Errorf("Expected one disabled topic, got %+v", c.Topics())
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"no feeds", "feeds: []", "at least one feed"},
		{"missing url", "feeds:\n  - key: a", "feed URL is required"},
		{"duplicate key", "feeds:\n  - {key: a, url: u}\n  - {key: a, url: v}", "duplicate feed key"},
		{"bad format", "feeds:\n  - {key: a, url: u, format: xml}", "invalid format"},
		{"bad layout", "feeds:\n  - {key: a, url: u}\ncategories:\n  - {title: A, layout: grid}", "invalid layout"},
		{"bad mapping", "feeds:\n  - {key: a, url: u}\nmapping:\n  - {name: A}", "must have name and key"},
		{"duplicate topic", "feeds:\n  - {key: a, url: u}\ntopics:\n  - {id: t}\n  - {id: t}", "duplicate topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing %q, got %v", tt.errText, err)
			}
		})
	}
}
