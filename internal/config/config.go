package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Storage   StorageConfig   `yaml:"storage"`
	Outreach  OutreachConfig  `yaml:"outreach"`
	Finder    FinderConfig    `yaml:"finder"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Redis     RedisConfig     `yaml:"redis"`
	AppDB     AppDBConfig     `yaml:"app_db"`
	Email     EmailConfig     `yaml:"email"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Tweets    TweetsConfig    `yaml:"tweets"`
}

// AppConfig identifies the product being promoted
type AppConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ServerConfig holds control panel HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// BrowserConfig holds the browser session settings
type BrowserConfig struct {
	UserDataDir    string `yaml:"user_data_dir"`
	Headless       bool   `yaml:"headless"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c BrowserConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig holds the ledger storage location
type StorageConfig struct {
	DataDir   string `yaml:"data_dir"`
	ExportDir string `yaml:"export_dir"`
}

// OutreachConfig holds DM sending limits and pacing
type OutreachConfig struct {
	MaxPerRun      int `yaml:"max_per_run"`
	DailyLimit     int `yaml:"daily_limit"`
	DelaySeconds   int `yaml:"delay_seconds"`
	AfternoonBatch int `yaml:"afternoon_batch"`
	MorningBatch   int `yaml:"morning_batch"`
}

// Delay returns the pause between consecutive sends
func (c OutreachConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// FinderConfig holds lead discovery settings
type FinderConfig struct {
	QueriesPerRun     int `yaml:"queries_per_run"`
	MinFollowers      int `yaml:"min_followers"`
	MaxFollowers      int `yaml:"max_followers"`
	QueryDelaySeconds int `yaml:"query_delay_seconds"`
	MorningTarget     int `yaml:"morning_target"`
}

// QueryDelay returns the pause between search queries
func (c FinderConfig) QueryDelay() time.Duration {
	return time.Duration(c.QueryDelaySeconds) * time.Second
}

// SchedulerConfig holds automation schedule settings
type SchedulerConfig struct {
	Enabled             bool `yaml:"enabled"`
	TickIntervalSeconds int  `yaml:"tick_interval_seconds"`
}

// TickInterval returns the scheduler poll interval
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// RedisConfig holds optional Redis settings for routine locks
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// AppDBConfig holds the read-side connection to the web app database
type AppDBConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured query timeout as a duration
func (c AppDBConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmailConfig holds report delivery settings
type EmailConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Enabled   bool   `yaml:"enabled"`
}

// Configured reports whether email delivery can be attempted
func (c EmailConfig) Configured() bool {
	return c.Enabled && c.From != "" && c.To != ""
}

// StripeConfig holds revenue reporting credentials
type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
	Enabled   bool   `yaml:"enabled"`
}

// TweetsConfig holds posting settings
type TweetsConfig struct {
	RSSFeedURL string `yaml:"rss_feed_url"`
	Enabled    bool   `yaml:"enabled"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "LinkHub"
	}
	if cfg.App.URL == "" {
		cfg.App.URL = "https://linkhub.app"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Browser.UserDataDir == "" {
		cfg.Browser.UserDataDir = "./browser-profile"
	}
	if cfg.Browser.TimeoutSeconds == 0 {
		cfg.Browser.TimeoutSeconds = 30
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	if cfg.Storage.ExportDir == "" {
		cfg.Storage.ExportDir = "./exports"
	}
	if cfg.Outreach.MaxPerRun == 0 {
		cfg.Outreach.MaxPerRun = 20
	}
	if cfg.Outreach.DailyLimit == 0 {
		cfg.Outreach.DailyLimit = 50
	}
	if cfg.Outreach.DelaySeconds == 0 {
		cfg.Outreach.DelaySeconds = 60
	}
	if cfg.Outreach.MorningBatch == 0 {
		cfg.Outreach.MorningBatch = 15
	}
	if cfg.Outreach.AfternoonBatch == 0 {
		cfg.Outreach.AfternoonBatch = 10
	}
	if cfg.Finder.QueriesPerRun == 0 {
		cfg.Finder.QueriesPerRun = 5
	}
	if cfg.Finder.MinFollowers == 0 {
		cfg.Finder.MinFollowers = 100
	}
	if cfg.Finder.MaxFollowers == 0 {
		cfg.Finder.MaxFollowers = 100000
	}
	if cfg.Finder.QueryDelaySeconds == 0 {
		cfg.Finder.QueryDelaySeconds = 1
	}
	if cfg.Finder.MorningTarget == 0 {
		cfg.Finder.MorningTarget = 30
	}
	if cfg.Scheduler.TickIntervalSeconds == 0 {
		cfg.Scheduler.TickIntervalSeconds = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.AppDB.TimeoutSeconds == 0 {
		cfg.AppDB.TimeoutSeconds = 10
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = "us-west-2"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		// A missing config file is fine; env vars carry everything needed
		if os.IsNotExist(err) {
			cfg = &Config{}
			applyDefaults(cfg)
		} else {
			return nil, err
		}
	}

	if url := os.Getenv("APP_URL"); url != "" {
		cfg.App.URL = url
	}
	if name := os.Getenv("APP_NAME"); name != "" {
		cfg.App.Name = name
	}
	if port := os.Getenv("CONTROL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dir := os.Getenv("BROWSER_PROFILE_DIR"); dir != "" {
		cfg.Browser.UserDataDir = dir
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.AppDB.URL = url
		cfg.AppDB.Enabled = true
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if key := os.Getenv("AWS_SES_ACCESS_KEY"); key != "" {
		cfg.Email.AccessKey = key
	}
	if key := os.Getenv("AWS_SES_SECRET_KEY"); key != "" {
		cfg.Email.SecretKey = key
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Email.Region = region
	}
	if from := os.Getenv("REPORT_FROM"); from != "" {
		cfg.Email.From = from
		cfg.Email.Enabled = true
	}
	if to := os.Getenv("REPORT_TO"); to != "" {
		cfg.Email.To = to
	}
	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		cfg.Stripe.SecretKey = key
		cfg.Stripe.Enabled = true
	}
	if feed := os.Getenv("TWEET_RSS_FEED"); feed != "" {
		cfg.Tweets.RSSFeedURL = feed
	}

	return cfg, nil
}
