package config

import (
	"fmt"
	"strings"
)

var (
	knownProviders = []string{"openai", "groq", "gemini"}
	knownStores    = []string{"memory", "database", "redis"}
	knownDrivers   = []string{"sqlite", "postgres", "mysql"}
	knownArtifacts = []string{"local", "s3"}
	knownLogLevels = []string{"debug", "info", "warn", "error"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Validate 验证配置，一次返回全部问题
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// 服务器
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		add("invalid HTTP port %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		add("invalid metrics port %d", c.Server.MetricsPort)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		add("rate limit must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst == 0 {
		add("rate_limit_burst must be positive when rate limiting is enabled")
	}
	if c.Server.MaxUploadBytes <= 0 {
		add("max_upload_bytes must be positive")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		add("tls_cert_file and tls_key_file must be set together")
	}

	// LLM
	if !oneOf(c.LLM.Provider, knownProviders) {
		add("unknown llm provider %q (supported: %s)", c.LLM.Provider, strings.Join(knownProviders, ", "))
	} else if strings.TrimSpace(c.LLM.APIKey) == "" {
		add("llm.api_key is required for provider %s", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxRetries < 0 {
		add("llm.max_retries must not be negative")
	}
	if c.LLM.TurnTimeout < 0 || c.LLM.Timeout < 0 {
		add("llm timeouts must not be negative")
	}

	// 存储
	if !oneOf(c.Store.Type, knownStores) {
		add("unknown store type %q", c.Store.Type)
	}
	switch strings.ToLower(c.Store.Type) {
	case "database":
		if !oneOf(c.Database.Driver, knownDrivers) {
			add("unknown database driver %q", c.Database.Driver)
		}
		if c.Database.Name == "" {
			add("database.name is required")
		}
	case "redis":
		if c.Redis.Addr == "" {
			add("redis.addr is required")
		}
	}

	// 产物
	if !oneOf(c.Artifacts.Type, knownArtifacts) {
		add("unknown artifacts type %q", c.Artifacts.Type)
	}
	if strings.EqualFold(c.Artifacts.Type, "s3") && c.Artifacts.Bucket == "" {
		add("artifacts.bucket is required for s3")
	}

	// 日志与遥测
	if !oneOf(c.Log.Level, knownLogLevels) {
		add("unknown log level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		add("log.format must be json or console")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		add("telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
