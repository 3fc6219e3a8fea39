package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Catalog   CatalogConfig   `mapstructure:"catalog" yaml:"catalog"`
	Metadata  MetadataConfig  `mapstructure:"metadata" yaml:"metadata"`
	Matching  MatchingConfig  `mapstructure:"matching" yaml:"matching"`
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor"`
	Arr       ArrConfig       `mapstructure:"arr" yaml:"arr"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Downloads DownloadsConfig `mapstructure:"downloads" yaml:"downloads"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	// Per-client request budget for the lookup endpoints; 0 disables limiting.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
	TailSize   int    `mapstructure:"tail_size" yaml:"tail_size"`
}

// CatalogConfig holds settings for the scraped catalog site.
type CatalogConfig struct {
	Host              string  `mapstructure:"host" yaml:"host"`
	UserAgent         string  `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout           int     `mapstructure:"timeout" yaml:"timeout"` // seconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// MetadataConfig holds metadata provider configuration.
type MetadataConfig struct {
	TMDB TMDBConfig `mapstructure:"tmdb" yaml:"tmdb"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	ImageBaseURL string        `mapstructure:"image_base_url" yaml:"image_base_url"`
	Language     string        `mapstructure:"language" yaml:"language"`
	Timeout      int           `mapstructure:"timeout" yaml:"timeout"` // seconds
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	Breaker      BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the metadata provider.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests" yaml:"max_requests"`
	Interval         time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" yaml:"failure_threshold"`
}

// MatchingConfig holds the candidate scoring weights.
// The original title shares the title weight: the better of the two similarities counts once.
type MatchingConfig struct {
	TitleWeight   float64 `mapstructure:"title_weight" yaml:"title_weight"`
	YearWeight    float64 `mapstructure:"year_weight" yaml:"year_weight"`
	SeasonWeight  float64 `mapstructure:"season_weight" yaml:"season_weight"`
	EpisodeWeight float64 `mapstructure:"episode_weight" yaml:"episode_weight"`
	Threshold     float64 `mapstructure:"threshold" yaml:"threshold"`
}

// ExtractorConfig holds stream link extraction settings.
type ExtractorConfig struct {
	ExcludedSources []string        `mapstructure:"excluded_sources" yaml:"excluded_sources"`
	MaxWorkers      int             `mapstructure:"max_workers" yaml:"max_workers"`
	QualityBuckets  []QualityBucket `mapstructure:"quality_buckets" yaml:"quality_buckets"`
	YtdlpBinary     string          `mapstructure:"ytdlp_binary" yaml:"ytdlp_binary"`
	YtdlpTimeout    time.Duration   `mapstructure:"ytdlp_timeout" yaml:"ytdlp_timeout"`
}

// QualityBucket maps a range of video heights (inclusive) onto a quality label.
type QualityBucket struct {
	MinHeight int    `mapstructure:"min_height" yaml:"min_height"`
	MaxHeight int    `mapstructure:"max_height" yaml:"max_height"`
	Label     string `mapstructure:"label" yaml:"label"`
}

// ArrConfig holds Sonarr and Radarr connection settings.
type ArrConfig struct {
	Sonarr ArrInstanceConfig `mapstructure:"sonarr" yaml:"sonarr"`
	Radarr ArrInstanceConfig `mapstructure:"radarr" yaml:"radarr"`
}

// ArrInstanceConfig holds one *arr instance connection.
type ArrInstanceConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// SchedulerConfig holds background job configuration.
type SchedulerConfig struct {
	GrabCron  string        `mapstructure:"grab_cron" yaml:"grab_cron"`
	GrabDelay time.Duration `mapstructure:"grab_delay" yaml:"grab_delay"`
}

// DownloadsConfig holds the download destination.
type DownloadsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3535,
			RequestsPerMinute: 60,
		},
		Database: DatabaseConfig{
			Path: "./data/serialgrab.db",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			TailSize: 500,
		},
		Catalog: CatalogConfig{
			Host:      "https://uaserial.top",
			UserAgent: defaultUserAgent,
			Timeout:   10,
		},
		Metadata: MetadataConfig{
			TMDB: TMDBConfig{
				APIKey:       EmbeddedTMDBKey,
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p",
				Language:     "uk-UA",
				Timeout:      10,
				CacheTTL:     time.Hour,
				Breaker: BreakerConfig{
					MaxRequests:      5,
					Interval:         time.Minute,
					Timeout:          30 * time.Second,
					FailureThreshold: 5,
				},
			},
		},
		Matching: MatchingConfig{
			TitleWeight:   0.4,
			YearWeight:    0.2,
			SeasonWeight:  0.2,
			EpisodeWeight: 0.1,
			Threshold:     0.3,
		},
		Extractor: ExtractorConfig{
			ExcludedSources: []string{"videocdn", "voidboost", "vidsrc"},
			MaxWorkers:      32,
			QualityBuckets: []QualityBucket{
				{MinHeight: 0, MaxHeight: 480, Label: "480p"},
				{MinHeight: 481, MaxHeight: 720, Label: "720p"},
				{MinHeight: 721, MaxHeight: 1080, Label: "1080p"},
			},
			YtdlpBinary:  "yt-dlp",
			YtdlpTimeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			GrabCron:  "*/5 * * * *",
			GrabDelay: 3 * time.Minute,
		},
		Downloads: DownloadsConfig{
			Dir: "/app/downloads",
		},
	}
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// Load reads configuration from file and environment variables.
// Priority: environment variables > .env file > config file > defaults
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside of development.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.serialgrab")
	}

	v.SetEnvPrefix("SERIALGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults mirrors Default() into viper so env-only keys are bound.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.requests_per_minute", d.Server.RequestsPerMinute)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.tail_size", d.Logging.TailSize)

	v.SetDefault("catalog.host", d.Catalog.Host)
	v.SetDefault("catalog.user_agent", d.Catalog.UserAgent)
	v.SetDefault("catalog.timeout", d.Catalog.Timeout)
	v.SetDefault("catalog.requests_per_second", 0)

	v.SetDefault("metadata.tmdb.api_key", d.Metadata.TMDB.APIKey)
	v.SetDefault("metadata.tmdb.base_url", d.Metadata.TMDB.BaseURL)
	v.SetDefault("metadata.tmdb.image_base_url", d.Metadata.TMDB.ImageBaseURL)
	v.SetDefault("metadata.tmdb.language", d.Metadata.TMDB.Language)
	v.SetDefault("metadata.tmdb.timeout", d.Metadata.TMDB.Timeout)
	v.SetDefault("metadata.tmdb.cache_ttl", d.Metadata.TMDB.CacheTTL)
	v.SetDefault("metadata.tmdb.breaker.enabled", false)
	v.SetDefault("metadata.tmdb.breaker.max_requests", d.Metadata.TMDB.Breaker.MaxRequests)
	v.SetDefault("metadata.tmdb.breaker.interval", d.Metadata.TMDB.Breaker.Interval)
	v.SetDefault("metadata.tmdb.breaker.timeout", d.Metadata.TMDB.Breaker.Timeout)
	v.SetDefault("metadata.tmdb.breaker.failure_threshold", d.Metadata.TMDB.Breaker.FailureThreshold)

	v.SetDefault("matching.title_weight", d.Matching.TitleWeight)
	v.SetDefault("matching.year_weight", d.Matching.YearWeight)
	v.SetDefault("matching.season_weight", d.Matching.SeasonWeight)
	v.SetDefault("matching.episode_weight", d.Matching.EpisodeWeight)
	v.SetDefault("matching.threshold", d.Matching.Threshold)

	v.SetDefault("extractor.excluded_sources", d.Extractor.ExcludedSources)
	v.SetDefault("extractor.max_workers", d.Extractor.MaxWorkers)
	v.SetDefault("extractor.ytdlp_binary", d.Extractor.YtdlpBinary)
	v.SetDefault("extractor.ytdlp_timeout", d.Extractor.YtdlpTimeout)

	v.SetDefault("arr.sonarr.url", "")
	v.SetDefault("arr.sonarr.api_key", "")
	v.SetDefault("arr.radarr.url", "")
	v.SetDefault("arr.radarr.api_key", "")

	v.SetDefault("scheduler.grab_cron", d.Scheduler.GrabCron)
	v.SetDefault("scheduler.grab_delay", d.Scheduler.GrabDelay)

	v.SetDefault("downloads.dir", d.Downloads.Dir)
}

// Validate checks invariants viper cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Catalog.Host) == "" {
		return fmt.Errorf("catalog.host is required")
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("matching.threshold must be within [0,1], got %v", c.Matching.Threshold)
	}
	for _, b := range c.Extractor.QualityBuckets {
		if b.MaxHeight < b.MinHeight {
			return fmt.Errorf("quality bucket %q: max_height < min_height", b.Label)
		}
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// YAML renders the effective configuration. The TMDB key is masked.
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	if masked.Metadata.TMDB.APIKey != "" {
		masked.Metadata.TMDB.APIKey = "********"
	}
	if masked.Arr.Sonarr.APIKey != "" {
		masked.Arr.Sonarr.APIKey = "********"
	}
	if masked.Arr.Radarr.APIKey != "" {
		masked.Arr.Radarr.APIKey = "********"
	}
	return yaml.Marshal(&masked)
}
