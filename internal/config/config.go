// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Inference     InferenceConfig     `yaml:"inference" mapstructure:"inference"`
	Story         StoryConfig         `yaml:"story" mapstructure:"story"`
	Upload        UploadConfig        `yaml:"upload" mapstructure:"upload"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// InferenceConfig 远程推理服务配置
type InferenceConfig struct {
	// APIToken 以 Bearer 形式附加到每个推理请求
	APIToken string         `yaml:"api_token" mapstructure:"api_token"`
	Caption  EndpointConfig `yaml:"caption" mapstructure:"caption"`
	Story    EndpointConfig `yaml:"story" mapstructure:"story"`
}

// EndpointConfig 单个推理端点配置
type EndpointConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StoryConfig 故事生成提示词与采样参数
type StoryConfig struct {
	Preamble       string               `yaml:"preamble" mapstructure:"preamble"`
	DefaultContext string               `yaml:"default_context" mapstructure:"default_context"`
	Parameters     GenerationParameters `yaml:"parameters" mapstructure:"parameters"`
}

// GenerationParameters 文本生成采样参数
type GenerationParameters struct {
	MaxLength          int     `yaml:"max_length" mapstructure:"max_length"`
	Temperature        float64 `yaml:"temperature" mapstructure:"temperature"`
	TopK               int     `yaml:"top_k" mapstructure:"top_k"`
	TopP               float64 `yaml:"top_p" mapstructure:"top_p"`
	DoSample           bool    `yaml:"do_sample" mapstructure:"do_sample"`
	NoRepeatNgramSize  int     `yaml:"no_repeat_ngram_size" mapstructure:"no_repeat_ngram_size"`
	NumReturnSequences int     `yaml:"num_return_sequences" mapstructure:"num_return_sequences"`
}

// UploadConfig 图片上传配置
type UploadConfig struct {
	MaxBytes  int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	FormField string `yaml:"form_field" mapstructure:"form_field"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置，启用时依赖 Redis
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window" mapstructure:"requests_per_window"`
	Window            time.Duration `yaml:"window" mapstructure:"window"`
	KeyPrefix         string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
}

const (
	minInferenceTimeout = time.Second
	maxInferenceTimeout = time.Minute
)

// Validate 校验关键配置项
func (c *Config) Validate() error {
	endpoints := map[string]EndpointConfig{
		"inference.caption": c.Inference.Caption,
		"inference.story":   c.Inference.Story,
	}
	for name, ep := range endpoints {
		if strings.TrimSpace(ep.URL) == "" {
			return fmt.Errorf("%s.url is required", name)
		}
		if ep.Timeout < minInferenceTimeout || ep.Timeout > maxInferenceTimeout {
			return fmt.Errorf("%s.timeout must be between %s and %s, got %s",
				name, minInferenceTimeout, maxInferenceTimeout, ep.Timeout)
		}
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Story.Parameters.NumReturnSequences < 1 {
		return fmt.Errorf("story.parameters.num_return_sequences must be at least 1")
	}
	if c.Security.CORS.AllowCredentials {
		for _, origin := range c.Security.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("security.cors.allow_credentials requires explicit allowed_origins, not \"*\"")
			}
		}
	}
	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RequestsPerWindow <= 0 || c.Security.RateLimit.Window <= 0 {
			return fmt.Errorf("security.rate_limit requires positive requests_per_window and window")
		}
	}
	return nil
}
