package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with key", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.HTTPPort = 70000 }, wantErr: "invalid HTTP port"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "anthropic" }, wantErr: `unknown llm provider "anthropic"`},
		{name: "provider case-insensitive", mutate: func(c *Config) { c.LLM.Provider = "Gemini" }},
		{name: "missing key", mutate: func(c *Config) { c.LLM.APIKey = " " }, wantErr: "llm.api_key is required"},
		{name: "temperature", mutate: func(c *Config) { c.LLM.Temperature = 3 }, wantErr: "temperature"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Type = "mongo" }, wantErr: "unknown store type"},
		{name: "database driver", mutate: func(c *Config) {
			c.Store.Type = "database"
			c.Database.Driver = "oracle"
		}, wantErr: "unknown database driver"},
		{name: "database ok", mutate: func(c *Config) { c.Store.Type = "database" }},
		{name: "redis addr", mutate: func(c *Config) {
			c.Store.Type = "redis"
			c.Redis.Addr = ""
		}, wantErr: "redis.addr is required"},
		{name: "artifact type", mutate: func(c *Config) { c.Artifacts.Type = "gcs" }, wantErr: "unknown artifacts type"},
		{name: "s3 bucket", mutate: func(c *Config) { c.Artifacts.Type = "s3" }, wantErr: "artifacts.bucket is required"},
		{name: "burst", mutate: func(c *Config) { c.Server.RateLimitBurst = 0 }, wantErr: "rate_limit_burst"},
		{name: "rate limit off", mutate: func(c *Config) {
			c.Server.RateLimitRPS = 0
			c.Server.RateLimitBurst = 0
		}},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "unknown log level"},
		{name: "sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 1.5 }, wantErr: "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTPPort = 0
	cfg.Store.Type = "mongo"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "invalid HTTP port")
		assert.Contains(t, err.Error(), "unknown store type")
		assert.Contains(t, err.Error(), "log.format")
	}
}

func TestValidate_TLSPair(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TLSCertFile = "server.crt"

	err := cfg.Validate()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "tls_cert_file and tls_key_file")
	}

	cfg.Server.TLSKeyFile = "server.key"
	assert.NoError(t, cfg.Validate())
}
