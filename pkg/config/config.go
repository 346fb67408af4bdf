// Package config loads autopilot configuration from JSON or YAML files and
// the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the autopilot configuration
type Config struct {
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Images   ImagesConfig   `json:"images" yaml:"images"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Credits  CreditsConfig  `json:"credits" yaml:"credits"`
	Publish  PublishConfig  `json:"publish" yaml:"publish"`
	YouTube  YouTubeConfig  `json:"youtube" yaml:"youtube"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// LLMConfig contains chat-completion settings
type LLMConfig struct {
	Provider       string `json:"provider" yaml:"provider"` // "openai", "ollama" or "server"
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model          string `json:"model" yaml:"model"`
	ContextSize    int    `json:"context_size" yaml:"context_size"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries" yaml:"max_retries"`
}

// ImagesConfig contains image generation settings
type ImagesConfig struct {
	Providers     []string `json:"providers" yaml:"providers"` // tried in order: "openai", "pexels"
	Model         string   `json:"model" yaml:"model"`
	Size          string   `json:"size" yaml:"size"`
	Style         string   `json:"style" yaml:"style"`
	Quality       string   `json:"quality" yaml:"quality"`
	PexelsAPIKey  string   `json:"pexels_api_key,omitempty" yaml:"pexels_api_key,omitempty"`
	MirrorDir     string   `json:"mirror_dir,omitempty" yaml:"mirror_dir,omitempty"`
	MaxWidth      int      `json:"max_width" yaml:"max_width"`
	Concurrency   int      `json:"concurrency" yaml:"concurrency"`
	RefinePrompts bool     `json:"refine_prompts" yaml:"refine_prompts"`
}

// DatabaseConfig contains persistence settings
type DatabaseConfig struct {
	Driver   string `json:"driver" yaml:"driver"` // "postgres", "sqlite" or "memory"
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"` // sqlite file
}

// RedisConfig enables cross-instance progress fan-out when Addr is set
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db" yaml:"db"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr          string   `json:"addr" yaml:"addr"`
	PublicBaseURL string   `json:"public_base_url" yaml:"public_base_url"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
	MediaDir      string   `json:"media_dir" yaml:"media_dir"`
}

// PipelineConfig contains generation tuning
type PipelineConfig struct {
	ResearchTemperature float64  `json:"research_temperature" yaml:"research_temperature"`
	ResearchMaxTokens   int      `json:"research_max_tokens" yaml:"research_max_tokens"`
	WriterTemperature   float64  `json:"writer_temperature" yaml:"writer_temperature"`
	WriterMaxTokens     int      `json:"writer_max_tokens" yaml:"writer_max_tokens"`
	MinContentLength    int      `json:"min_content_length" yaml:"min_content_length"`
	MaxAffiliateSelect  int      `json:"max_affiliate_select" yaml:"max_affiliate_select"`
	MaxInternalSelect   int      `json:"max_internal_select" yaml:"max_internal_select"`
	MaxAffiliateWeave   int      `json:"max_affiliate_weave" yaml:"max_affiliate_weave"`
	MaxInternalInsert   int      `json:"max_internal_insert" yaml:"max_internal_insert"`
	SitemapLimit        int      `json:"sitemap_limit" yaml:"sitemap_limit"`
	HeartbeatSeconds    int      `json:"heartbeat_seconds" yaml:"heartbeat_seconds"`
	TimeoutMinutes      int      `json:"timeout_minutes" yaml:"timeout_minutes"`
	DefaultWordCount    int      `json:"default_word_count" yaml:"default_word_count"`
	WordCountTolerance  int      `json:"word_count_tolerance" yaml:"word_count_tolerance"`
	BannedWords         []string `json:"banned_words" yaml:"banned_words"`
}

// CreditsConfig is the per-operation cost table
type CreditsConfig struct {
	BlogPost    int `json:"blog_post" yaml:"blog_post"`
	Publish     int `json:"publish" yaml:"publish"`
	SocialPost  int `json:"social_post" yaml:"social_post"`
	VideoScript int `json:"video_script" yaml:"video_script"`
}

// PublishConfig contains CMS settings
type PublishConfig struct {
	InternalBlogBaseURL string `json:"internal_blog_base_url,omitempty" yaml:"internal_blog_base_url,omitempty"`
	TimeoutSeconds      int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// YouTubeConfig enables video lookup for embeds
type YouTubeConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Mode  string `json:"mode" yaml:"mode"` // "dev" or "prod"
	Level string `json:"level" yaml:"level"`
}

// Load loads configuration from a file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return finish(&config)
}

// LoadDefault looks for a config file in the working directory and then the
// home directory. Without one it returns defaults plus environment overrides.
func LoadDefault() (*Config, error) {
	names := []string{"autopilot.yaml", "autopilot.yml", "autopilot.json", ".autopilot.json"}

	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}

	for _, dir := range dirs {
		for _, name := range names {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return Load(p)
			}
		}
	}

	return finish(&Config{})
}

func finish(c *Config) (*Config, error) {
	c.setDefaults()
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	// LLM defaults
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == "ollama" {
			c.LLM.Model = "llama3.1:8b"
		} else {
			c.LLM.Model = "gpt-4o"
		}
	}
	// ollama looks the context size up per model
	if c.LLM.ContextSize == 0 && c.LLM.Provider != "ollama" {
		c.LLM.ContextSize = 128000
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 180
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}

	// Image defaults
	if len(c.Images.Providers) == 0 {
		c.Images.Providers = []string{"openai", "pexels"}
	}
	if c.Images.Model == "" {
		c.Images.Model = "dall-e-3"
	}
	if c.Images.Size == "" {
		c.Images.Size = "1792x1024"
	}
	if c.Images.Style == "" {
		c.Images.Style = "natural"
	}
	if c.Images.Quality == "" {
		c.Images.Quality = "standard"
	}
	if c.Images.MaxWidth == 0 {
		c.Images.MaxWidth = 1600
	}
	if c.Images.Concurrency == 0 {
		c.Images.Concurrency = 3
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "autopilot.db"
	}
	if c.Database.Driver == "postgres" {
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}

	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost:8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000"}
	}

	// Pipeline defaults
	p := &c.Pipeline
	if p.ResearchTemperature == 0 {
		p.ResearchTemperature = 0.3
	}
	if p.ResearchMaxTokens == 0 {
		p.ResearchMaxTokens = 2000
	}
	if p.WriterTemperature == 0 {
		p.WriterTemperature = 0.8
	}
	if p.WriterMaxTokens == 0 {
		p.WriterMaxTokens = 8000
	}
	if p.MinContentLength == 0 {
		p.MinContentLength = 100
	}
	if p.MaxAffiliateSelect == 0 {
		p.MaxAffiliateSelect = 4
	}
	if p.MaxInternalSelect == 0 {
		p.MaxInternalSelect = 5
	}
	if p.MaxAffiliateWeave == 0 {
		p.MaxAffiliateWeave = 3
	}
	if p.MaxInternalInsert == 0 {
		p.MaxInternalInsert = 3
	}
	if p.SitemapLimit == 0 {
		p.SitemapLimit = 200
	}
	if p.HeartbeatSeconds == 0 {
		p.HeartbeatSeconds = 15
	}
	if p.TimeoutMinutes == 0 {
		p.TimeoutMinutes = 5
	}
	if p.DefaultWordCount == 0 {
		p.DefaultWordCount = 1500
	}
	if p.WordCountTolerance == 0 {
		p.WordCountTolerance = 300
	}

	// Credit defaults
	if c.Credits.BlogPost == 0 {
		c.Credits.BlogPost = 50
	}
	if c.Credits.Publish == 0 {
		c.Credits.Publish = 10
	}
	if c.Credits.SocialPost == 0 {
		c.Credits.SocialPost = 5
	}
	if c.Credits.VideoScript == 0 {
		c.Credits.VideoScript = 20
	}

	if c.Publish.TimeoutSeconds == 0 {
		c.Publish.TimeoutSeconds = 30
	}

	// Log defaults
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// applyEnv overlays secrets and deployment settings from the environment.
func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.Images.PexelsAPIKey, "PEXELS_API_KEY")
	setString(&c.YouTube.APIKey, "YOUTUBE_API_KEY")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Server.Addr, "AUTOPILOT_ADDR")
	setString(&c.Log.Mode, "LOG_MODE")

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.Driver = "postgres"
		c.Database.URL = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama":
	case "server":
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("llm.base_url is required for server provider")
		}
	default:
		return fmt.Errorf("invalid llm provider: %s (must be 'openai', 'ollama' or 'server')", c.LLM.Provider)
	}

	for _, p := range c.Images.Providers {
		if p != "openai" && p != "pexels" {
			return fmt.Errorf("invalid image provider: %s (must be 'openai' or 'pexels')", p)
		}
	}
	if c.Images.Concurrency < 1 || c.Images.Concurrency > 16 {
		return fmt.Errorf("images.concurrency out of range: %d (1-16)", c.Images.Concurrency)
	}

	switch c.Database.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("database.url or database.host is required for postgres")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be 'postgres', 'sqlite' or 'memory')", c.Database.Driver)
	}

	if c.Pipeline.ResearchTemperature < 0 || c.Pipeline.ResearchTemperature > 2 {
		return fmt.Errorf("pipeline.research_temperature out of range: %v", c.Pipeline.ResearchTemperature)
	}
	if c.Pipeline.WriterTemperature < 0 || c.Pipeline.WriterTemperature > 2 {
		return fmt.Errorf("pipeline.writer_temperature out of range: %v", c.Pipeline.WriterTemperature)
	}
	if c.Pipeline.MinContentLength < 1 {
		return fmt.Errorf("pipeline.min_content_length must be positive")
	}

	if c.Credits.BlogPost < 0 || c.Credits.Publish < 0 || c.Credits.SocialPost < 0 || c.Credits.VideoScript < 0 {
		return fmt.Errorf("credit costs must not be negative")
	}

	return nil
}

// LLMTimeout returns the per-call chat completion timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// PipelineTimeout returns the wall-clock budget for one generation.
func (c *Config) PipelineTimeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutMinutes) * time.Minute
}

// HeartbeatInterval returns the keepalive interval during the writing call.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Pipeline.HeartbeatSeconds) * time.Second
}
