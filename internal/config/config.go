package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// KnownMetrics is the metric column set of the structured store schema.
var KnownMetrics = []string{
	"revenue",
	"net_income",
	"operating_income",
	"eps",
	"total_assets",
	"total_liabilities",
	"equity",
}

// Config holds all application configuration.
type Config struct {
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logger"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		Driver      string `yaml:"driver"`
		DSN         string `yaml:"dsn"`
		OrderColumn string `yaml:"order_column"`
	} `yaml:"database"`
	Router struct {
		AdapterTimeout time.Duration `yaml:"adapter_timeout"`
		DefaultRoute   string        `yaml:"default_route"`
	} `yaml:"router"`
	Market struct {
		Provider      string `yaml:"provider"`
		BaseURL       string `yaml:"base_url"`
		APIKey        string `yaml:"api_key"`
		Proxy         string `yaml:"proxy"`
		DefaultSymbol string `yaml:"default_symbol"`
		HistoryRange  string `yaml:"history_range"`
		Breaker       struct {
			FailureThreshold uint32        `yaml:"failure_threshold"`
			SuccessThreshold uint32        `yaml:"success_threshold"`
			Cooldown         time.Duration `yaml:"cooldown"`
		} `yaml:"breaker"`
	} `yaml:"market"`
	Documents struct {
		IndexPath string `yaml:"index_path"`
		TopK      int    `yaml:"top_k"`
	} `yaml:"documents"`
	Analytics struct {
		DefaultMetrics []string `yaml:"default_metrics"`
	} `yaml:"analytics"`
	Chart struct {
		Width     int     `yaml:"width"`
		Height    int     `yaml:"height"`
		DPI       float64 `yaml:"dpi"`
		LineColor string  `yaml:"line_color"`
		MaxTicks  int     `yaml:"max_ticks"`
	} `yaml:"chart"`
	Vocabulary struct {
		Path string `yaml:"path"`
	} `yaml:"vocabulary"`
	Queue struct {
		Backend       string        `yaml:"backend"`
		MaxConcurrent int           `yaml:"max_concurrent"`
		MaxAge        time.Duration `yaml:"max_age"`
		Redis         struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"queue"`
	Schedule struct {
		CleanupCron string `yaml:"cleanup_cron"`
		HealthCron  string `yaml:"health_cron"`
	} `yaml:"schedule"`
}

// Load reads config from a YAML file and an optional .env file, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"FINSIGHT_LOG_LEVEL":      &c.Logger.Level,
		"FINSIGHT_LOG_FORMAT":     &c.Logger.Format,
		"FINSIGHT_ADDR":           &c.Server.Addr,
		"FINSIGHT_DB_DRIVER":      &c.Database.Driver,
		"FINSIGHT_DB_DSN":         &c.Database.DSN,
		"FINSIGHT_DEFAULT_ROUTE":  &c.Router.DefaultRoute,
		"FINSIGHT_MARKET":         &c.Market.Provider,
		"FINSIGHT_MARKET_URL":     &c.Market.BaseURL,
		"FINSIGHT_MARKET_API_KEY": &c.Market.APIKey,
		"HTTPS_PROXY":             &c.Market.Proxy,
		"FINSIGHT_INDEX_PATH":     &c.Documents.IndexPath,
		"FINSIGHT_VOCABULARY":     &c.Vocabulary.Path,
		"FINSIGHT_QUEUE_BACKEND":  &c.Queue.Backend,
		"REDIS_ADDR":              &c.Queue.Redis.Address,
		"REDIS_PASSWORD":          &c.Queue.Redis.Password,
		"CRON_CLEANUP":            &c.Schedule.CleanupCron,
		"CRON_HEALTH":             &c.Schedule.HealthCron,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("FINSIGHT_ADAPTER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FINSIGHT_ADAPTER_TIMEOUT: %w", err)
		}
		c.Router.AdapterTimeout = d
	}
	if v := os.Getenv("FINSIGHT_TOP_K"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FINSIGHT_TOP_K: %w", err)
		}
		c.Documents.TopK = k
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_DB: %w", err)
		}
		c.Queue.Redis.DB = db
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "data/finsight.db"
	}
	if c.Database.OrderColumn == "" {
		c.Database.OrderColumn = "id"
	}
	if c.Router.AdapterTimeout == 0 {
		c.Router.AdapterTimeout = 3 * time.Second
	}
	if c.Router.DefaultRoute == "" {
		c.Router.DefaultRoute = "document"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "yahoo"
	}
	if c.Market.DefaultSymbol == "" {
		c.Market.DefaultSymbol = "^GSPC"
	}
	if c.Market.HistoryRange == "" {
		c.Market.HistoryRange = "1mo"
	}
	if c.Market.Breaker.FailureThreshold == 0 {
		c.Market.Breaker.FailureThreshold = 3
	}
	if c.Market.Breaker.SuccessThreshold == 0 {
		c.Market.Breaker.SuccessThreshold = 1
	}
	if c.Market.Breaker.Cooldown == 0 {
		c.Market.Breaker.Cooldown = 30 * time.Second
	}
	if c.Documents.IndexPath == "" {
		c.Documents.IndexPath = "data/documents.bleve"
	}
	if c.Documents.TopK == 0 {
		c.Documents.TopK = 5
	}
	if len(c.Analytics.DefaultMetrics) == 0 {
		c.Analytics.DefaultMetrics = []string{"revenue", "net_income"}
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = 1000
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 600
	}
	if c.Chart.DPI == 0 {
		c.Chart.DPI = 100
	}
	if c.Chart.LineColor == "" {
		c.Chart.LineColor = "#2563eb"
	}
	if c.Chart.MaxTicks == 0 {
		c.Chart.MaxTicks = 12
	}
	if c.Queue.Backend == "" {
		c.Queue.Backend = "memory"
	}
	if c.Queue.MaxConcurrent == 0 {
		c.Queue.MaxConcurrent = 4
	}
	if c.Queue.MaxAge == 0 {
		c.Queue.MaxAge = time.Hour
	}
	if c.Schedule.CleanupCron == "" {
		c.Schedule.CleanupCron = "0 */10 * * * *"
	}
	if c.Schedule.HealthCron == "" {
		c.Schedule.HealthCron = "0 0 * * * *"
	}
}

var (
	hexColor   = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// IsKnownMetric reports whether m is a metric column of the schema.
func IsKnownMetric(m string) bool {
	for _, k := range KnownMetrics {
		if k == m {
			return true
		}
	}
	return false
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if !identifier.MatchString(c.Database.OrderColumn) {
		return fmt.Errorf("database.order_column %q is not a column name", c.Database.OrderColumn)
	}
	if c.Router.AdapterTimeout <= 0 {
		return fmt.Errorf("router.adapter_timeout must be positive")
	}
	switch c.Router.DefaultRoute {
	case "document", "hybrid":
	default:
		return fmt.Errorf("router.default_route must be document or hybrid, got %q", c.Router.DefaultRoute)
	}
	switch c.Market.Provider {
	case "yahoo", "financego":
	case "rest":
		if c.Market.BaseURL == "" {
			return fmt.Errorf("market.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("market.provider %q is not supported", c.Market.Provider)
	}
	if c.Documents.TopK <= 0 {
		return fmt.Errorf("documents.top_k must be positive")
	}
	for _, m := range c.Analytics.DefaultMetrics {
		if !IsKnownMetric(strings.ToLower(m)) {
			return fmt.Errorf("analytics.default_metrics: unknown metric %q", m)
		}
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 || c.Chart.DPI <= 0 {
		return fmt.Errorf("chart width, height and dpi must be positive")
	}
	if !hexColor.MatchString(c.Chart.LineColor) {
		return fmt.Errorf("chart.line_color %q is not a hex colour", c.Chart.LineColor)
	}
	if c.Chart.MaxTicks < 2 {
		return fmt.Errorf("chart.max_ticks must be at least 2")
	}
	switch c.Queue.Backend {
	case "memory":
	case "redis":
		if c.Queue.Redis.Address == "" {
			return fmt.Errorf("queue.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("queue.backend %q is not supported", c.Queue.Backend)
	}
	if c.Queue.MaxConcurrent <= 0 {
		return fmt.Errorf("queue.max_concurrent must be positive")
	}
	return nil
}
