// =============================================================================
// 📦 AgentChat 配置加载器
// =============================================================================
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithValidator((*config.Config).Validate).
//	    Load()
//
// 叠加顺序: DefaultConfig → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTCHAT", lookupEnv: os.LookupEnv}
}

// WithConfigPath 文件不存在时保留默认值
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 在全部来源叠加完之后按注册顺序执行
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.overlayFile(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	if err := l.overlayEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = l.providerKey(cfg.LLM.Provider)
	}

	for _, validate := range l.validators {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// MustLoad 失败时 panic，只用于测试和一次性工具
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (l *Loader) overlayFile(cfg *Config) error {
	if l.configPath == "" {
		return nil
	}
	data, err := os.ReadFile(l.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// 各变体惯用的 API Key 环境变量，只在 llm.api_key 为空时读取
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"groq":   "GROQ_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

func (l *Loader) providerKey(provider string) string {
	name, ok := providerKeyEnv[strings.ToLower(provider)]
	if !ok {
		return ""
	}
	v, _ := l.lookupEnv(name)
	return v
}

// =============================================================================
// 🌱 环境变量覆盖
// =============================================================================

// overlayEnv 沿 env 标签递归，空值视为未设置
func (l *Loader) overlayEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.overlayEnv(field, key); err != nil {
				return err
			}
			continue
		}
		raw, ok := l.lookupEnv(key)
		if !ok || raw == "" || !field.CanSet() {
			continue
		}
		if err := parseInto(field, raw); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// parseInto 支持 string、整数、time.Duration、浮点、bool 和逗号分隔的 []string
func parseInto(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err == nil {
			field.SetInt(int64(d))
		}
		return err
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		field.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
