package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// Station data.
	StationsFile           string
	SubstationsFile        string
	StationsReloadInterval time.Duration
	PolicyFile             string

	// Address geocoding (OpenStreetMap providers).
	GeocoderEnabled   bool
	NominatimURL      string
	PhotonURL         string
	GeocoderUserAgent string
	GeocoderCity      string
	GeocoderTimeout   time.Duration
	GeocoderCacheSize int
	GeocoderCacheTTL  time.Duration
	GeocoderMissTTL   time.Duration
	GeocoderRateLimit float64

	// Batch feasibility pipeline.
	PipelineEnabled    bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	reloadInterval, err := parseDuration("STATIONS_RELOAD_INTERVAL", "0", true)
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parseDuration("GEOCODER_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration("GEOCODER_CACHE_TTL", "24h", false)
	if err != nil {
		return nil, err
	}

	missTTL, err := parseDuration("GEOCODER_CACHE_MISS_TTL", "10m", true)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODER_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid GEOCODER_RATE_LIMIT")
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		StationsFile:           sharedcfg.EnvOrDefault("STATIONS_FILE", "data/stations.csv"),
		SubstationsFile:        os.Getenv("SUBSTATIONS_FILE"),
		StationsReloadInterval: reloadInterval,
		PolicyFile:             os.Getenv("POLICY_FILE"),

		GeocoderEnabled:   parseBool("GEOCODER_ENABLED", true),
		NominatimURL:      sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		PhotonURL:         os.Getenv("PHOTON_URL"),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "grid-feasibility-service/1.0"),
		GeocoderCity:      sharedcfg.EnvOrDefault("GEOCODER_CITY", "Heilbronn"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderCacheSize: parseGeocoderCacheSize(),
		GeocoderCacheTTL:  cacheTTL,
		GeocoderMissTTL:   missTTL,
		GeocoderRateLimit: rateLimit,

		PipelineEnabled:    parseBool("PIPELINE_ENABLED", false),
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "feasibility-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "feasibility-verdicts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "grid-feasibility"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.StationsFile == "" {
		return nil, errors.New("STATIONS_FILE is required")
	}
	if cfg.GeocoderEnabled && cfg.NominatimURL == "" && cfg.PhotonURL == "" {
		return nil, errors.New("GEOCODER_ENABLED is true but neither NOMINATIM_URL nor PHOTON_URL is set")
	}
	if cfg.GeocoderEnabled && cfg.GeocoderUserAgent == "" {
		return nil, errors.New("GEOCODER_USER_AGENT is required by the Nominatim usage policy")
	}
	if cfg.PipelineEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}

func parseGeocoderCacheSize() int {
	if s := os.Getenv("GEOCODER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
