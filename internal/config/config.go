package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/pipeline"
)

// Off disables an optional setting that otherwise has a default.
const Off = "off"

// Config holds all service settings, populated from environment variables.
type Config struct {
	AlertsSource   string
	FetchTimeout   time.Duration
	FetchAttempts  int
	ReloadSchedule string
	RowWorkers     int
	Region         domain.BoundingBox

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka sink; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox area enrichment configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// KafkaEnabled reports whether display alerts are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	fetchAttempts, err := parseRange("FETCH_ATTEMPTS", 3, 1, 10)
	if err != nil {
		return nil, err
	}

	rowWorkers, err := parseRange("ROW_WORKERS", 4, 1, 64)
	if err != nil {
		return nil, err
	}

	region, err := ParseBounds(sharedcfg.EnvOrDefault("REGION_BOUNDS", "-53,165,-29,180"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGION_BOUNDS: %w", err)
	}

	schedule := sharedcfg.EnvOrDefault("RELOAD_SCHEDULE", "@every 15m")
	if err := pipeline.ValidateSchedule(schedule); err != nil {
		return nil, fmt.Errorf("invalid RELOAD_SCHEDULE: %w", err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		AlertsSource:   sharedcfg.EnvOrDefault("ALERTS_SOURCE", "data/alerts.csv"),
		FetchTimeout:   fetchTimeout,
		FetchAttempts:  fetchAttempts,
		ReloadSchedule: schedule,
		RowWorkers:     rowWorkers,
		Region:         region,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "cap-display-alerts"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if strings.TrimSpace(cfg.AlertsSource) == "" {
		return nil, errors.New("ALERTS_SOURCE is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// ParseBounds reads "minLat,minLng,maxLat,maxLng". The value "off" yields the
// zero box, which disables region warnings.
func ParseBounds(s string) (domain.BoundingBox, error) {
	if strings.EqualFold(strings.TrimSpace(s), Off) {
		return domain.BoundingBox{}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, fmt.Errorf("want 4 comma-separated values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("value %d: %w", i+1, err)
		}
		v[i] = f
	}

	box := domain.BoundingBox{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}
	if box.MinLat > box.MaxLat || box.MinLng > box.MaxLng {
		return domain.BoundingBox{}, errors.New("minimums must not exceed maximums")
	}
	return box, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
