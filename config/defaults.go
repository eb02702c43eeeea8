package config

import "time"

const (
	defaultHTTPPort  = 8080
	defaultMaxUpload = 25 << 20 // Whisper 类接口的上传上限
	defaultKeyPrefix = "agentchat:"
)

// DefaultConfig 零配置即可启动：内存存储、本地产物目录、OpenAI 变体（Key 取自 OPENAI_API_KEY）
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Store:     DefaultStoreConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Artifacts: DefaultArtifactsConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig WriteTimeout 要覆盖转写 + 补全 + 合成的最坏情况
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        defaultHTTPPort,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    3 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
		MaxUploadBytes:  defaultMaxUpload,
	}
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:          "openai",
		Temperature:       0.7,
		Timeout:           time.Minute,
		MaxRetries:        3,
		RetryInitialDelay: time.Second,
		RetryMaxDelay:     30 * time.Second,
		TurnTimeout:       2 * time.Minute,
	}
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{Type: "memory", KeyPrefix: defaultKeyPrefix, Timeout: 10 * time.Second}
}

// DefaultDatabaseConfig 默认是当前目录下的 SQLite 文件
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "agentchat.db",
		Host:            "localhost",
		Port:            5432,
		User:            "agentchat",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		AutoMigrate:     true,
	}
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Addr: "localhost:6379", PoolSize: 10, MinIdleConns: 2}
}

func DefaultArtifactsConfig() ArtifactsConfig {
	return ArtifactsConfig{
		Type:        "local",
		Dir:         "uploads",
		Region:      "us-east-1",
		MaxBytes:    defaultMaxUpload,
		KeepInbound: true,
	}
}

func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "json", OutputPaths: []string{"stdout"}, EnableCaller: true}
}

// DefaultTelemetryConfig 默认关闭；打开后按 10% 采样
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{OTLPEndpoint: "localhost:4317", ServiceName: "agentchat", SampleRate: 0.1}
}
