package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级行为：日志、缓存目录、上游超时与 HTTP 监听端口。
type GlobalConfig struct {
	ListenPort     int      `mapstructure:"ListenPort"`
	LogLevel       string   `mapstructure:"LogLevel"`
	LogFilePath    string   `mapstructure:"LogFilePath"`
	LogMaxSize     int      `mapstructure:"LogMaxSize"`
	LogMaxBackups  int      `mapstructure:"LogMaxBackups"`
	LogCompress    bool     `mapstructure:"LogCompress"`
	CacheDir       string   `mapstructure:"CacheDir"`
	CacheTTL       Duration `mapstructure:"CacheTTL"`
	RequestTimeout Duration `mapstructure:"RequestTimeout"`
	Workers        int      `mapstructure:"Workers"`
}

// APIConfig 描述远端 JSON API（GitHub 用户目录）的访问参数。
type APIConfig struct {
	BaseURL   string   `mapstructure:"BaseURL"`
	Token     string   `mapstructure:"Token"`
	UserAgent string   `mapstructure:"UserAgent"`
	PerPage   int      `mapstructure:"PerPage"`
	ListTTL   Duration `mapstructure:"ListTTL"`
	DetailTTL Duration `mapstructure:"DetailTTL"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	API    APIConfig    `mapstructure:"API"`
}

// AuthMode 输出 `token` 或 `anonymous`，供日志字段使用，不暴露凭证本身。
func (a APIConfig) AuthMode() string {
	if strings.TrimSpace(a.Token) != "" {
		return "token"
	}
	return "anonymous"
}

// EffectiveTTL 返回端点 TTL，未覆盖时回退至全局 CacheTTL。
func (c *Config) EffectiveTTL(endpoint Duration) time.Duration {
	if endpoint.DurationValue() > 0 {
		return endpoint.DurationValue()
	}
	return c.Global.CacheTTL.DurationValue()
}
