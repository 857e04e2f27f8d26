package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"BDS_MODEL_FEED", "BDS_BASE_URL", "WCS_SERVICE", "WCS_VERSION", "HTTP_TIMEOUT", "LOG_LEVEL", "AWS_REGION"} {
		t.Setenv(k, "")
	}
	t.Setenv("BDS_API_KEY", "abc")

	cfg := FromEnv()
	if cfg.ModelFeed != DefaultModelFeed || cfg.Service != "WCS" || cfg.Version != "1.0" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("base url=%q", cfg.BaseURL)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Fatalf("timeout=%v", cfg.HTTPTimeout)
	}
	if cfg.AWSRegion != DefaultRegion {
		t.Fatalf("region=%q", cfg.AWSRegion)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BDS_API_KEY", "k")
	t.Setenv("BDS_MODEL_FEED", "EURO4")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_CONSOLE", "yes")
	t.Setenv("LOG_SAMPLE_N", "3")

	cfg := FromEnv()
	if cfg.ModelFeed != "EURO4" || cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Console || cfg.Log.SampleN != 3 {
		t.Fatalf("log cfg=%+v", cfg.Log)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	base := Config{
		APIKey:      "k",
		ModelFeed:   "UKPPBEST",
		BaseURL:     DefaultBaseURL,
		Service:     "WCS",
		Version:     "1.0",
		HTTPTimeout: time.Second,
		Log:         LogCfg{Level: "info"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}

	cases := map[string]func(c *Config){
		"ModelFeed":   func(c *Config) { c.ModelFeed = "NOPE" },
		"APIKey":      func(c *Config) { c.APIKey = "" },
		"Service":     func(c *Config) { c.Service = "WMS" },
		"Version":     func(c *Config) { c.Version = "2.0" },
		"BaseURL":     func(c *Config) { c.BaseURL = "not a url" },
		"HTTPTimeout": func(c *Config) { c.HTTPTimeout = 0 },
		"Level":       func(c *Config) { c.Log.Level = "loud" },
	}
	for field, mutate := range cases {
		c := base
		mutate(&c)
		err := c.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", field)
		}
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("%s: error should name the field, got %v", field, err)
		}
	}
}

func TestModelFeedsMatchValidation(t *testing.T) {
	for _, feed := range ModelFeeds {
		c := Config{APIKey: "k", ModelFeed: feed, BaseURL: DefaultBaseURL, Service: "WCS", Version: "1.0", HTTPTimeout: time.Second, Log: LogCfg{Level: "info"}}
		if err := c.Validate(); err != nil {
			t.Fatalf("feed %s rejected: %v", feed, err)
		}
	}
}
