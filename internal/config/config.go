package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Deepgram    DeepgramConfig    `yaml:"deepgram"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Paths       PathsConfig       `yaml:"paths"`
	Render      RenderConfig      `yaml:"render"`
	Retry       RetryConfig       `yaml:"retry"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Watch       WatchConfig       `yaml:"watch"`
}

type DeepgramConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Language    string        `yaml:"language"`
	SmartFormat *bool         `yaml:"smart_format"`
	Timeout     time.Duration `yaml:"timeout"`
}

type FFmpegConfig struct {
	Binary     string `yaml:"binary"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type PathsConfig struct {
	Input   string `yaml:"input"`
	Output  string `yaml:"output"`
	Temp    string `yaml:"temp"`
	TxtDir  string `yaml:"txt_dir"`
	JSONDir string `yaml:"json_dir"`
	PDFDir  string `yaml:"pdf_dir"`
}

type RenderConfig struct {
	PDFMinimal  bool   `yaml:"pdf_minimal"`
	FontRegular string `yaml:"font_regular"`
	FontBold    string `yaml:"font_bold"`
	Docx        bool   `yaml:"docx"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

type GeminiConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

type WatchConfig struct {
	Settle time.Duration `yaml:"settle"`
}

// Load reads and validates the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

// SmartFormat reports the effective smart_format setting (default true).
func (c *Config) SmartFormat() bool {
	return c.Deepgram.SmartFormat == nil || *c.Deepgram.SmartFormat
}

// Validate rejects impossible values and fills in defaults.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative")
	}
	if c.Performance.MaxConcurrent < 0 {
		return fmt.Errorf("performance.max_concurrent must not be negative")
	}
	if c.FFmpeg.SampleRate < 0 || c.FFmpeg.Channels < 0 {
		return fmt.Errorf("ffmpeg.sample_rate and ffmpeg.channels must not be negative")
	}

	if c.Deepgram.BaseURL == "" {
		c.Deepgram.BaseURL = "https://api.deepgram.com"
	}
	if c.Deepgram.Model == "" {
		c.Deepgram.Model = "nova-3"
	}
	if c.Deepgram.Language == "" {
		c.Deepgram.Language = "es"
	}
	if c.Deepgram.Timeout == 0 {
		c.Deepgram.Timeout = 10 * time.Minute
	}
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	if c.FFmpeg.SampleRate == 0 {
		c.FFmpeg.SampleRate = 16000
	}
	if c.FFmpeg.Channels == 0 {
		c.FFmpeg.Channels = 1
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "out_transcripts"
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = time.Second
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Watch.Settle <= 0 {
		c.Watch.Settle = 2 * time.Second
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}

	return nil
}
