package config

import (
	"fmt"
	"time"
)

// Config 是 AgentChat 的完整配置。每个字段的 env 标签拼成
// <PREFIX>_<SECTION>_<FIELD> 形式的环境变量名。
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Store     StoreConfig     `yaml:"store" env:"STORE"`
	Database  DatabaseConfig  `yaml:"database" env:"DATABASE"`   // store.type=database
	Redis     RedisConfig     `yaml:"redis" env:"REDIS"`         // store.type=redis
	Artifacts ArtifactsConfig `yaml:"artifacts" env:"ARTIFACTS"` // 合成语音与保留的上传音频
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

type ServerConfig struct {
	HTTPPort    int `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"` // 0: /metrics 挂在 HTTP 端口

	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"` // 需覆盖一次完整轮次
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	RateLimitRPS       float64  `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"` // 每个客户端 IP，0 不限流
	RateLimitBurst     int      `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	MaxUploadBytes     int64    `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`

	// 两者都设置时以 HTTPS 监听
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
}

// LLMConfig 只在启动时读取一次；模型相关字段留空时取所选变体的默认值。
type LLMConfig struct {
	Provider     string `yaml:"provider" env:"PROVIDER"` // openai | groq | gemini
	APIKey       string `yaml:"api_key" env:"API_KEY"`
	BaseURL      string `yaml:"base_url" env:"BASE_URL"`
	Organization string `yaml:"organization" env:"ORGANIZATION"`

	Model              string  `yaml:"model" env:"MODEL"`
	Temperature        float64 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens          int     `yaml:"max_tokens" env:"MAX_TOKENS"`
	TranscriptionModel string  `yaml:"transcription_model" env:"TRANSCRIPTION_MODEL"`
	Language           string  `yaml:"language" env:"LANGUAGE"`
	SpeechModel        string  `yaml:"speech_model" env:"SPEECH_MODEL"`
	Voice              string  `yaml:"voice" env:"VOICE"`
	SpeechFormat       string  `yaml:"speech_format" env:"SPEECH_FORMAT"`
	SpeechInstructions string  `yaml:"speech_instructions" env:"SPEECH_INSTRUCTIONS"`

	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`                     // 单次请求
	MaxPromptTokens   int           `yaml:"max_prompt_tokens" env:"MAX_PROMPT_TOKENS"` // 0: 上下文长度的 3/4
	MaxRetries        int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay" env:"RETRY_INITIAL_DELAY"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay" env:"RETRY_MAX_DELAY"`
	TurnTimeout       time.Duration `yaml:"turn_timeout" env:"TURN_TIMEOUT"` // 一个轮次内全部 Provider 调用
}

type StoreConfig struct {
	Type      string        `yaml:"type" env:"TYPE"` // memory | database | redis
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"` // postgres | mysql | sqlite
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Name     string `yaml:"name" env:"NAME"` // sqlite 时为文件路径
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`

	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	TLS          bool   `yaml:"tls" env:"TLS"` // 托管 Redis 常要求 TLS
}

// ArtifactsConfig 凭证留空时走 AWS 默认凭证链。
type ArtifactsConfig struct {
	Type   string `yaml:"type" env:"TYPE"` // local | s3
	Dir    string `yaml:"dir" env:"DIR"`
	Bucket string `yaml:"bucket" env:"BUCKET"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
	Region string `yaml:"region" env:"REGION"`

	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"` // MinIO 等
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"USE_PATH_STYLE"`

	MaxBytes    int64 `yaml:"max_bytes" env:"MAX_BYTES"`
	KeepInbound bool  `yaml:"keep_inbound" env:"KEEP_INBOUND"` // 保留用户上传的音频
}

type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"` // json | console
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"` // gRPC
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// DSN 返回 gorm 使用的连接串，未知驱动返回空串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Name
	}
	return ""
}
