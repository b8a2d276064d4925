package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath        string `long:"db-path" env:"DB_PATH" default:"./data/landing-comb.db" description:"SQLite database file"`
	CatalogFile   string `long:"catalog-file" env:"CATALOG_FILE" description:"YAML catalog replacing the embedded one (optional)"`
	CacheBackend  string `long:"cache-backend" env:"CACHE_BACKEND" default:"db" choice:"db" choice:"file" choice:"redis" description:"Post cache backend"`
	PostCacheFile string `long:"post-cache-file" env:"POST_CACHE_FILE" default:"./data/post-cache.json" description:"Post cache file for the file backend"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address for the redis backend"`
	RedisKey      string `long:"redis-key" env:"REDIS_KEY" default:"landing-comb:post-cache" description:"Redis key holding the post cache"`

	// CMS and feed configuration
	CMSEndpoint   string `long:"cms-endpoint" env:"CMS_GRAPHQL_URL" default:"https://staging-cms.freemalaysiatoday.com/graphql" description:"CMS GraphQL endpoint"`
	CMSPageSize   int    `long:"cms-page-size" env:"CMS_PAGE_SIZE" default:"10" description:"Number of latest posts checked per run"`
	FeedTimeout   int    `long:"feed-timeout" env:"FEED_TIMEOUT" default:"30" description:"HTTP timeout in seconds for CMS and feed requests"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of concurrent feed fetches and background workers"`
	FetchAttempts int    `long:"fetch-attempts" env:"FETCH_ATTEMPTS" default:"3" description:"Attempts per feed fetch"`
	RetryDelay    int    `long:"retry-delay" env:"RETRY_DELAY" default:"1000" description:"Delay between feed fetch attempts in milliseconds"`

	// Pipeline configuration
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	PollInterval     int    `long:"poll-interval" env:"POLL_INTERVAL" default:"0" description:"Seconds between scheduled change checks (0 disables polling)"`
	RefreshOnStartup bool   `long:"refresh-on-startup" env:"REFRESH_ON_STARTUP" description:"Refresh every feed and landing page at startup"`
	Cooldown         int    `long:"cooldown" env:"PING_COOLDOWN" default:"2000" description:"Minimum milliseconds between accepted change triggers"`

	// Notification configuration
	NotifyURL   string  `long:"notify-url" env:"NOTIFY_URL" description:"Push gateway URL (notifications are only logged when empty)"`
	NotifyToken string  `long:"notify-token" env:"NOTIFY_TOKEN" description:"Bearer token for the push gateway"`
	NotifyRate  float64 `long:"notify-rate" env:"NOTIFY_RATE" default:"10" description:"Maximum push messages per second"`
	PingTopic   string  `long:"ping-topic" env:"PING_TOPIC" default:"ping" description:"Topic receiving delayed silent pings"`
	PingDelay   int     `long:"ping-delay" env:"PING_DELAY" default:"50" description:"Seconds before a silent ping is sent"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Landing Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Kuala_Lumpur)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses command-line flags and environment. It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.CMSPageSize <= 0 {
		return nil, fmt.Errorf("cms page size must be positive, got %d", raw.CMSPageSize)
	}
	if raw.NotifyRate <= 0 {
		return nil, fmt.Errorf("notify rate must be positive, got %v", raw.NotifyRate)
	}

	return &Cfg{
		DBPath:           raw.DBPath,
		CatalogFile:      raw.CatalogFile,
		CacheBackend:     raw.CacheBackend,
		PostCacheFile:    raw.PostCacheFile,
		RedisAddr:        raw.RedisAddr,
		RedisKey:         raw.RedisKey,
		CMSEndpoint:      raw.CMSEndpoint,
		CMSPageSize:      raw.CMSPageSize,
		FeedTimeout:      time.Duration(raw.FeedTimeout) * time.Second,
		WorkerCount:      raw.WorkerCount,
		FetchAttempts:    raw.FetchAttempts,
		RetryDelay:       time.Duration(raw.RetryDelay) * time.Millisecond,
		Port:             raw.Port,
		PollInterval:     time.Duration(raw.PollInterval) * time.Second,
		RefreshOnStartup: raw.RefreshOnStartup,
		Cooldown:         time.Duration(raw.Cooldown) * time.Millisecond,
		NotifyURL:        raw.NotifyURL,
		NotifyToken:      raw.NotifyToken,
		NotifyRate:       raw.NotifyRate,
		PingTopic:        raw.PingTopic,
		PingDelay:        time.Duration(raw.PingDelay) * time.Second,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
