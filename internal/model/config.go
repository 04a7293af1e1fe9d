package model

import (
	"runtime"
	"time"
)

// Config is the complete runtime configuration.
// Values are layered by viper: flags, VERITY_* env vars, config file, defaults.
type Config struct {
	Backend         BackendConfig     `yaml:"backend" mapstructure:"backend"`
	Source          SourceConfig      `yaml:"source" mapstructure:"source"`
	Render          RenderConfig      `yaml:"render" mapstructure:"render"`
	Concurrency     ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Server          ServerConfig      `yaml:"server" mapstructure:"server"`
	Proxy           ProxyConfig       `yaml:"proxy" mapstructure:"proxy"`
	DocumentTimeout time.Duration     `yaml:"document_timeout" mapstructure:"document_timeout"`
	Verbose         bool              `yaml:"verbose" mapstructure:"verbose"`
}

// BackendConfig configures the vision-language extraction backend
type BackendConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai (vLLM compatible), anthropic, ollama
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float32 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// SourceConfig configures the application/document metadata service
type SourceConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// RenderConfig controls page rasterization
type RenderConfig struct {
	DPI          float64 `yaml:"dpi" mapstructure:"dpi"`
	MaxPages     int     `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDimension int     `yaml:"max_dimension" mapstructure:"max_dimension"`
	JPEGQuality  int     `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
}

// ConcurrencyConfig sizes the two concurrency tiers
type ConcurrencyConfig struct {
	RenderWorkers int `yaml:"render_workers" mapstructure:"render_workers"` // CPU-bound pool
	Documents     int `yaml:"documents" mapstructure:"documents"`           // documents in flight (I/O)
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	Addr      string        `yaml:"addr" mapstructure:"addr"`
	ReportTTL time.Duration `yaml:"report_ttl" mapstructure:"report_ttl"`
}

// ProxyConfig applies to every outbound HTTP client; empty falls back to
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY
type ProxyConfig struct {
	HTTP    string `yaml:"http,omitempty" mapstructure:"http"`
	HTTPS   string `yaml:"https,omitempty" mapstructure:"https"`
	NoProxy string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider:          "openai",
			Model:             "Qwen/Qwen2-VL-7B-Instruct",
			BaseURL:           "http://localhost:8000/v1",
			Timeout:           120,
			MaxTokens:         1024,
			Temperature:       0.1,
			RequestsPerSecond: 4,
			Burst:             4,
		},
		Source: SourceConfig{
			BaseURL:      "http://localhost:8080/api/internal",
			Timeout:      30 * time.Second,
			UserAgent:    "verity/0.3",
			MaxBodyBytes: 50 << 20,
		},
		Render: RenderConfig{
			DPI:          200,
			MaxPages:     5,
			MaxDimension: 2048,
			JPEGQuality:  75,
		},
		Concurrency: ConcurrencyConfig{
			RenderWorkers: runtime.NumCPU(),
			Documents:     8,
		},
		Server: ServerConfig{
			Addr:      ":8001",
			ReportTTL: time.Hour,
		},
		DocumentTimeout: 3 * time.Minute,
	}
}
