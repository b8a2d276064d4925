package catalog

type Layout string

const (
	LayoutHome     Layout = "home"
	LayoutFlat     Layout = "flat"
	LayoutStandard Layout = "standard"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatRSS  Format = "rss"
)

// FeedSource is one raw feed: a CMS category JSON feed, a video list or an RSS playlist.
type FeedSource struct {
	Key    string `yaml:"key"`
	URL    string `yaml:"url"`
	Format Format `yaml:"format"`
}

type CategoryDef struct {
	Title         string   `yaml:"title"`
	Layout        Layout   `yaml:"layout"`
	Subcategories []string `yaml:"subcategories"`
}

type KeyMapping struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// Topic is a notification interest group triggered by any of its category display names.
type Topic struct {
	ID         string   `yaml:"id"`
	Enabled    bool     `yaml:"enabled"`
	Categories []string `yaml:"categories"`
}

type document struct {
	Feeds          []FeedSource      `yaml:"feeds"`
	Categories     []CategoryDef     `yaml:"categories"`
	Mapping        []KeyMapping      `yaml:"mapping"`
	Topics         []Topic           `yaml:"topics"`
	LandingAliases map[string]string `yaml:"landing_aliases"`
	TouchedAliases map[string]string `yaml:"touched_aliases"`
}
