package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath        string
	CatalogFile   string
	CacheBackend  string
	PostCacheFile string
	RedisAddr     string
	RedisKey      string

	// CMS and feed configuration
	CMSEndpoint   string
	CMSPageSize   int
	FeedTimeout   time.Duration
	WorkerCount   int
	FetchAttempts int
	RetryDelay    time.Duration

	// Pipeline configuration
	Port             string
	PollInterval     time.Duration
	RefreshOnStartup bool
	Cooldown         time.Duration

	// Notification configuration
	NotifyURL   string
	NotifyToken string
	NotifyRate  float64
	PingTopic   string
	PingDelay   time.Duration

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
