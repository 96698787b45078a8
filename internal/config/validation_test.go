package config

import (
	"errors"
	"testing"
)

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	return &Config{
		ModelName:         "gemini-2.5-flash-lite",
		Temperature:       0.7,
		MaxTurns:          8,
		ChunkSize:         5,
		EmbedderModel:     DefaultEmbedderModel,
		EmbedderDimension: DefaultEmbedderDimension,
		IndexBackend:      IndexMemory,
		CatalogBaseURL:    DefaultCatalogBaseURL,
		CatalogTimeoutMS:  10000,
		PostgresHost:      "localhost",
		PostgresPort:      5432,
		PostgresUser:      "cartwright",
		PostgresPassword:  "cartwright_dev_password",
		PostgresDBName:    "cartwright",
		PostgresSSLMode:   "disable",
		ListenAddr:        ":8000",
		RateLimitRPS:      5,
		RateLimitBurst:    10,
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max turns",
			mutate:  func(c *Config) { c.MaxTurns = 0 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "zero embedder dimension",
			mutate:  func(c *Config) { c.EmbedderDimension = 0 },
			wantErr: ErrInvalidEmbedderDimension,
		},
		{
			name:    "unknown index backend",
			mutate:  func(c *Config) { c.IndexBackend = "faiss" },
			wantErr: ErrInvalidIndexBackend,
		},
		{
			name:    "empty catalog URL",
			mutate:  func(c *Config) { c.CatalogBaseURL = "" },
			wantErr: ErrInvalidCatalogURL,
		},
		{
			name:    "relative catalog URL",
			mutate:  func(c *Config) { c.CatalogBaseURL = "fakestoreapi.com" },
			wantErr: ErrInvalidCatalogURL,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty postgres db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "deprecated ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "prefer" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.RateLimitRPS = 0 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "zero burst",
			mutate:  func(c *Config) { c.RateLimitBurst = 0 },
			wantErr: ErrInvalidRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	err := validConfig().Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Validate() = %v, want %v", err, ErrMissingAPIKey)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() on nil = %v, want %v", err, ErrConfigNil)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"bare name gets googleai prefix", "gemini-2.5-flash-lite", "googleai/gemini-2.5-flash-lite"},
		{"qualified name kept as-is", "vertexai/gemini-2.5-pro", "vertexai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFullEmbedderName(t *testing.T) {
	cfg := &Config{EmbedderModel: "text-embedding-004"}
	if got := cfg.FullEmbedderName(); got != "googleai/text-embedding-004" {
		t.Errorf("FullEmbedderName() = %q", got)
	}
}
