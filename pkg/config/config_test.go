package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantErr  bool
		errMsg   string
		validate func(*testing.T, *Config)
	}{
		{
			name: "minimal json config gets defaults",
			file: "autopilot.json",
			content: `{
				"llm": {"provider": "openai", "model": "gpt-4o-mini"}
			}`,
			validate: func(t *testing.T, c *Config) {
				if c.LLM.Model != "gpt-4o-mini" {
					t.Errorf("LLM.Model = %v, want gpt-4o-mini", c.LLM.Model)
				}
				if c.Pipeline.ResearchTemperature != 0.3 {
					t.Errorf("ResearchTemperature = %v, want 0.3", c.Pipeline.ResearchTemperature)
				}
				if c.Pipeline.WriterTemperature != 0.8 {
					t.Errorf("WriterTemperature = %v, want 0.8", c.Pipeline.WriterTemperature)
				}
				if c.Pipeline.WriterMaxTokens != 8000 {
					t.Errorf("WriterMaxTokens = %v, want 8000", c.Pipeline.WriterMaxTokens)
				}
				if c.Pipeline.MinContentLength != 100 {
					t.Errorf("MinContentLength = %v, want 100", c.Pipeline.MinContentLength)
				}
				if c.Credits.BlogPost != 50 || c.Credits.Publish != 10 {
					t.Errorf("Credits = %+v, want blog 50 publish 10", c.Credits)
				}
				if c.Database.Driver != "sqlite" {
					t.Errorf("Database.Driver = %v, want sqlite", c.Database.Driver)
				}
			},
		},
		{
			name: "yaml config",
			file: "autopilot.yaml",
			content: `
llm:
  provider: server
  base_url: http://localhost:8081
  model: qwen2.5
pipeline:
  banned_words: ["revolutionair", "game-changer"]
credits:
  blog_post: 40
`,
			validate: func(t *testing.T, c *Config) {
				if c.LLM.Provider != "server" {
					t.Errorf("LLM.Provider = %v, want server", c.LLM.Provider)
				}
				if len(c.Pipeline.BannedWords) != 2 {
					t.Errorf("BannedWords = %v, want 2 entries", c.Pipeline.BannedWords)
				}
				if c.Credits.BlogPost != 40 {
					t.Errorf("Credits.BlogPost = %v, want 40", c.Credits.BlogPost)
				}
			},
		},
		{
			name:    "invalid provider",
			file:    "autopilot.json",
			content: `{"llm": {"provider": "magic"}}`,
			wantErr: true,
			errMsg:  "invalid llm provider",
		},
		{
			name:    "server provider without base url",
			file:    "autopilot.json",
			content: `{"llm": {"provider": "server"}}`,
			wantErr: true,
			errMsg:  "base_url is required",
		},
		{
			name:    "invalid image provider",
			file:    "autopilot.json",
			content: `{"images": {"providers": ["midjourney"]}}`,
			wantErr: true,
			errMsg:  "invalid image provider",
		},
		{
			name:    "ollama provider gets a local model",
			file:    "autopilot.json",
			content: `{"llm": {"provider": "ollama"}}`,
			validate: func(t *testing.T, c *Config) {
				if c.LLM.Model != "llama3.1:8b" {
					t.Errorf("LLM.Model = %v, want llama3.1:8b", c.LLM.Model)
				}
				if c.LLM.ContextSize != 0 {
					t.Errorf("LLM.ContextSize = %v, want 0 (looked up per model)", c.LLM.ContextSize)
				}
			},
		},
		{
			name:    "postgres without location",
			file:    "autopilot.json",
			content: `{"database": {"driver": "postgres"}}`,
			wantErr: true,
			errMsg:  "database.url or database.host",
		},
		{
			name:    "negative cost",
			file:    "autopilot.json",
			content: `{"credits": {"publish": -1}}`,
			wantErr: true,
			errMsg:  "must not be negative",
		},
		{
			name:    "malformed json",
			file:    "autopilot.json",
			content: `{"llm": `,
			wantErr: true,
			errMsg:  "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Load() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Load() error = %v, want containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %v, want read failure", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/autopilot?sslmode=disable")
	t.Setenv("REDIS_ADDR", "redis:6379")

	path := filepath.Join(t.TempDir(), "autopilot.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("LLM.APIKey = %q, want sk-test", cfg.LLM.APIKey)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.URL == "" {
		t.Errorf("Database = %+v, want postgres from DATABASE_URL", cfg.Database)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Redis.Addr = %q, want redis:6379", cfg.Redis.Addr)
	}
}

func TestDurations(t *testing.T) {
	c := &Config{}
	c.setDefaults()

	if got := c.PipelineTimeout(); got != 5*time.Minute {
		t.Errorf("PipelineTimeout() = %v, want 5m", got)
	}
	if got := c.HeartbeatInterval(); got != 15*time.Second {
		t.Errorf("HeartbeatInterval() = %v, want 15s", got)
	}
	if got := c.LLMTimeout(); got != 180*time.Second {
		t.Errorf("LLMTimeout() = %v, want 180s", got)
	}
}
