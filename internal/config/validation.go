package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key (required for all model and embedding calls)
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	// Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTurns bounds the reasoning/dispatch loop; an unbounded loop would
	// burn quota on a model that keeps requesting tools.
	if c.MaxTurns < 1 || c.MaxTurns > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidMaxTurns, c.MaxTurns)
	}

	if c.ChunkSize < 1 || c.ChunkSize > 65536 {
		return fmt.Errorf("%w: must be between 1 and 65536, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}

	// Embedding configuration
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.EmbedderDimension < 1 || c.EmbedderDimension > 4096 {
		return fmt.Errorf("%w: must be between 1 and 4096, got %d", ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}

	// Index backend
	if c.IndexBackend != IndexMemory && c.IndexBackend != IndexPostgres {
		return fmt.Errorf("%w: %q is not valid, must be %q or %q",
			ErrInvalidIndexBackend, c.IndexBackend, IndexMemory, IndexPostgres)
	}

	// Catalog configuration
	if c.CatalogBaseURL == "" {
		return fmt.Errorf("%w: catalog_base_url cannot be empty", ErrInvalidCatalogURL)
	}
	if u, err := url.Parse(c.CatalogBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidCatalogURL, c.CatalogBaseURL)
	}

	// PostgreSQL configuration (only reached by serve/index modes, but
	// validated unconditionally so a broken config fails early everywhere)
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only; allow/prefer are deprecated (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// Rate limiting
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: rate_limit_rps must be positive, got %g", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimitBurst)
	}

	return nil
}
