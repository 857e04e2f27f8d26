package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Model feeds served by the beta data services.
var ModelFeeds = []string{"EGloEGRR", "UKPPBEST", "UKPPNOW", "EURO4", "GlobEGRR"}

const (
	DefaultBaseURL   = "https://dataservices-beta.metoffice.gov.uk/services/"
	DefaultModelFeed = "UKPPBEST"
	DefaultService   = "WCS"
	DefaultVersion   = "1.0"
	DefaultRegion    = "eu-west-1"
)

type LogCfg struct {
	Level   string `validate:"oneof=debug info warn error"`
	Console bool
	SampleN int `validate:"gte=0"`
}

type Config struct {
	APIKey      string        `validate:"required"`
	ModelFeed   string        `validate:"required,oneof=EGloEGRR UKPPBEST UKPPNOW EURO4 GlobEGRR"`
	BaseURL     string        `validate:"required,url"`
	Service     string        `validate:"eq=WCS"`
	Version     string        `validate:"eq=1.0"`
	HTTPTimeout time.Duration `validate:"gt=0"`
	UserAgent   string
	Log         LogCfg

	AWSRegion       string
	MetricsTextfile string
}

var validate = validator.New()

// Load reads an optional .env file from the working directory, then the
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv() Config {
	return Config{
		APIKey:      getenv("BDS_API_KEY", ""),
		ModelFeed:   getenv("BDS_MODEL_FEED", DefaultModelFeed),
		BaseURL:     getenv("BDS_BASE_URL", DefaultBaseURL),
		Service:     getenv("WCS_SERVICE", DefaultService),
		Version:     getenv("WCS_VERSION", DefaultVersion),
		HTTPTimeout: getduration("HTTP_TIMEOUT", 60*time.Second),
		UserAgent:   getenv("HTTP_USER_AGENT", "bds-wcs"),
		Log: LogCfg{
			Level:   strings.ToLower(getenv("LOG_LEVEL", "info")),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		AWSRegion:       getenv("AWS_REGION", DefaultRegion),
		MetricsTextfile: getenv("METRICS_TEXTFILE", ""),
	}
}

// Validate reports every field that is out of range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
