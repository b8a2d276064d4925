package landing

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/landing-comb/app/catalog"
	"github.com/lysyi3m/landing-comb/app/content"
)

type ArticleSource interface {
	GetArticles(ctx context.Context, key string) ([]content.Article, error)
}

type LandingWriter interface {
	UpsertLanding(ctx context.Context, key string, items content.Items) error
}

type KeyResolver interface {
	FeedKey(displayName string) (string, bool)
	LandingKey(mainKey string) string
}

var _ KeyResolver = (*catalog.Catalog)(nil)

type Options struct {
	LeadFeedKey      string // first article of this feed opens the home page
	HeadlinesFeedKey string
	HeadlinesTitle   string
	PermalinkPrefix  string
	FlatLimit        int
	AdEvery          int
	MainCount        int
	HomeHeadlines    int
	SectionSize      int
}

func DefaultOptions() Options {
	return Options{
		LeadFeedKey:      "super-highlight",
		HeadlinesFeedKey: "headlines",
		HeadlinesTitle:   "Home",
		PermalinkPrefix:  "api/category/",
		FlatLimit:        30,
		AdEvery:          5,
		MainCount:        5,
		HomeHeadlines:    4,
		SectionSize:      6,
	}
}

// Landing is one assembled page before it is stored.
type Landing struct {
	Category string
	Key      string
	Items    content.Items
}

type Report struct {
	Written []string `json:"written"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// Assembler rebuilds landing documents from stored raw feeds.
type Assembler struct {
	source ArticleSource
	writer LandingWriter
	keys   KeyResolver
	opts   Options
}

func NewAssembler(source ArticleSource, writer LandingWriter, keys KeyResolver, opts Options) *Assembler {
	return &Assembler{source: source, writer: writer, keys: keys, opts: opts}
}

// Assemble builds and stores the landing page of each category in order. A category that
// cannot be resolved is skipped and a failed write does not stop the others.
func (a *Assembler) Assemble(ctx context.Context, categories []catalog.CategoryDef) Report {
	var report Report

	for _, cat := range categories {
		page, ok := a.Build(ctx, cat)
		if !ok {
			report.Skipped = append(report.Skipped, cat.Title)
			continue
		}

		if err := a.writer.UpsertLanding(ctx, page.Key, page.Items); err != nil {
			slog.Error("Failed to store landing page", "category", cat.Title, "key", page.Key, "error", err)
			report.Failed = append(report.Failed, page.Key)
			continue
		}

		slog.Debug("Landing page generated", "category", cat.Title, "key", page.Key, "items", len(page.Items))
		report.Written = append(report.Written, page.Key)
	}

	return report
}

// Build assembles one category's landing page without storing it. It reports false when the
// category has no feed key.
func (a *Assembler) Build(ctx context.Context, cat catalog.CategoryDef) (*Landing, bool) {
	mainKey, ok := a.keys.FeedKey(cat.Title)
	if !ok {
		slog.Warn("No mapping for category", "category", cat.Title)
		return nil, false
	}

	p := newPicker()
	var items content.Items

	switch cat.Layout {
	case catalog.LayoutFlat:
		items = a.buildFlat(ctx, p, mainKey)
	case catalog.LayoutHome:
		items = a.buildHome(ctx, p, cat)
	default:
		items = a.buildStandard(ctx, p, cat, mainKey)
	}

	if len(items) == 0 {
		slog.Warn("No unique articles selected for landing page", "category", cat.Title, "key", mainKey)
	}

	return &Landing{
		Category: cat.Title,
		Key:      a.keys.LandingKey(mainKey),
		Items:    Tag(items),
	}, true
}

func (a *Assembler) buildFlat(ctx context.Context, p *picker, mainKey string) content.Items {
	selected := p.take(a.articles(ctx, mainKey), a.opts.FlatLimit)

	items := make(content.Items, 0, len(selected)+len(selected)/max(a.opts.AdEvery, 1))
	for i, article := range selected {
		items = append(items, article)
		if a.opts.AdEvery > 0 && (i+1)%a.opts.AdEvery == 0 && i < len(selected)-1 {
			items = append(items, content.AdSlot{})
		}
	}
	return items
}

func (a *Assembler) buildHome(ctx context.Context, p *picker, cat catalog.CategoryDef) content.Items {
	var items content.Items

	if lead := a.articles(ctx, a.opts.LeadFeedKey); len(lead) > 0 {
		first := &lead[0]
		if slug := first.ResolveSlug(); slug != "" {
			p.seen[slug] = true
			items = append(items, first)
		}
	}

	for _, article := range p.take(a.articles(ctx, a.opts.HeadlinesFeedKey), a.opts.HomeHeadlines) {
		items = append(items, article)
	}
	items = append(items,
		content.MoreLink{Title: a.opts.HeadlinesTitle, Permalink: a.opts.PermalinkPrefix + a.opts.HeadlinesFeedKey},
		content.AdSlot{},
	)

	return a.appendSections(ctx, p, items, cat.Subcategories)
}

func (a *Assembler) buildStandard(ctx context.Context, p *picker, cat catalog.CategoryDef, mainKey string) content.Items {
	var items content.Items

	for _, article := range p.take(a.articles(ctx, mainKey), a.opts.MainCount) {
		items = append(items, article)
	}
	items = append(items,
		content.MoreLink{Title: cat.Title, Permalink: a.opts.PermalinkPrefix + mainKey},
		content.AdSlot{},
	)

	return a.appendSections(ctx, p, items, cat.Subcategories)
}

func (a *Assembler) appendSections(ctx context.Context, p *picker, items content.Items, subcategories []string) content.Items {
	for _, sub := range subcategories {
		subKey, ok := a.keys.FeedKey(sub)
		if !ok {
			slog.Warn("No mapping for subcategory", "category", sub)
			continue
		}

		selected := p.take(a.articles(ctx, subKey), a.opts.SectionSize)
		if len(selected) == 0 {
			continue
		}

		permalink := a.opts.PermalinkPrefix + subKey
		items = append(items, content.SectionTitle{Title: sub, Permalink: permalink})
		for _, article := range selected {
			items = append(items, article)
		}
		items = append(items, content.MoreLink{Title: sub, Permalink: permalink}, content.AdSlot{})
	}
	return items
}

// articles reads a raw feed. Read failures count as an empty feed.
func (a *Assembler) articles(ctx context.Context, key string) []content.Article {
	articles, err := a.source.GetArticles(ctx, key)
	if err != nil {
		slog.Warn("Could not read articles", "key", key, "error", err)
		return nil
	}
	return articles
}

// picker selects articles not yet used on the page being built.
type picker struct {
	seen map[string]bool
}

func newPicker() *picker {
	return &picker{seen: make(map[string]bool)}
}

// take returns up to n unseen articles in feed order and marks them seen.
// Articles without a resolvable slug are never selected.
func (p *picker) take(articles []content.Article, n int) []*content.Article {
	var result []*content.Article
	if n <= 0 {
		return result
	}

	for i := range articles {
		slug := articles[i].ResolveSlug()
		if slug == "" || p.seen[slug] {
			continue
		}
		p.seen[slug] = true
		result = append(result, &articles[i])
		if len(result) == n {
			break
		}
	}
	return result
}
