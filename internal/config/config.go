package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration from environment variables and an
// optional YAML file.
type Config struct {
	Port       int    `yaml:"port" validate:"min=1,max=65535"`
	Endpoint   string `yaml:"endpoint" validate:"omitempty,url"`
	APIKey     string `yaml:"api_key"`
	FeedFormat string `yaml:"feed_format" validate:"oneof=json gtfsrt"`
	DBPath     string `yaml:"db_path"`

	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gt=0"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	CacheTTL        time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	DisplayCount    int           `yaml:"display_count" validate:"gt=0"`
	PoolSize        int           `yaml:"pool_size" validate:"gt=0"`
	WalkBuffer      int           `yaml:"walk_buffer" validate:"gt=0"`
	ArrivingSoon    int           `yaml:"arriving_soon" validate:"gt=0"`
	DelayThreshold  time.Duration `yaml:"delay_threshold" validate:"gte=0"`
	Seed            int64         `yaml:"seed"`

	// SyntheticLatency delays each synthetic response, for exercising the
	// loading state in demo mode.
	SyntheticLatency time.Duration `yaml:"synthetic_latency" validate:"gte=0"`

	DefaultStation  string   `yaml:"default_station"`
	RefetchOnFilter bool     `yaml:"refetch_on_filter"`
	CORSOrigins     []string `yaml:"cors_origins"`

	PushoverToken string `yaml:"pushover_token"`
	PushoverUser  string `yaml:"pushover_user" validate:"required_with=PushoverToken"`
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:             envInt("SUBWAYPULSE_PORT", 8080),
		Endpoint:         envStr("SUBWAYPULSE_ENDPOINT", ""),
		APIKey:           envStr("SUBWAYPULSE_API_KEY", ""),
		FeedFormat:       envStr("SUBWAYPULSE_FEED_FORMAT", "json"),
		DBPath:           envStr("SUBWAYPULSE_DB_PATH", ""),
		RefreshInterval:  envDuration("SUBWAYPULSE_REFRESH_INTERVAL", 30*time.Second),
		FetchTimeout:     envDuration("SUBWAYPULSE_FETCH_TIMEOUT", 10*time.Second),
		CacheTTL:         envDuration("SUBWAYPULSE_CACHE_TTL", 15*time.Second),
		DisplayCount:     envInt("SUBWAYPULSE_DISPLAY_COUNT", 8),
		PoolSize:         envInt("SUBWAYPULSE_POOL_SIZE", 50),
		WalkBuffer:       envInt("SUBWAYPULSE_WALK_BUFFER", 7),
		ArrivingSoon:     envInt("SUBWAYPULSE_ARRIVING_SOON", 4),
		DelayThreshold:   envDuration("SUBWAYPULSE_DELAY_THRESHOLD", 60*time.Second),
		Seed:             int64(envInt("SUBWAYPULSE_SEED", 0)),
		SyntheticLatency: envDuration("SUBWAYPULSE_SYNTHETIC_LATENCY", 0),
		DefaultStation:   envStr("SUBWAYPULSE_DEFAULT_STATION", ""),
		RefetchOnFilter:  envBool("SUBWAYPULSE_REFETCH_ON_FILTER", false),
		CORSOrigins:      envList("SUBWAYPULSE_CORS_ORIGINS"),
		PushoverToken:    envStr("SUBWAYPULSE_PUSHOVER_TOKEN", ""),
		PushoverUser:     envStr("SUBWAYPULSE_PUSHOVER_USER", ""),
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Demo reports whether no live endpoint is configured.
func (c *Config) Demo() bool {
	return c.Endpoint == ""
}

// Notifications reports whether pushover credentials are present.
func (c *Config) Notifications() bool {
	return c.PushoverToken != "" && c.PushoverUser != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("45s") or bare seconds ("45").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
