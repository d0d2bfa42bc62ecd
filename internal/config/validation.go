package config

import (
	"fmt"
)

// Validate validates configuration values.
// Returns sentinel errors checkable with errors.Is().
//
// A missing OpenAI API key and a missing database URL are deliberately NOT
// validation errors: the service starts in degraded mode (keyword fallback,
// chat endpoints answering 503) exactly as the health endpoints report.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPort, c.Server.Port)
	}

	if c.OpenAI.ChatModel == "" {
		return fmt.Errorf("%w: openai.chat_model cannot be empty", ErrInvalidModel)
	}
	if c.OpenAI.EmbeddingModel == "" {
		return fmt.Errorf("%w: openai.embedding_model cannot be empty", ErrInvalidModel)
	}

	if c.Session.Timeout <= 0 {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidTimeout, c.Session.Timeout)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidSweepInterval, c.Session.SweepInterval)
	}
	// An empty secret means "generate one at startup"; a configured one
	// must be long enough to sign tokens safely.
	if c.Session.Secret != "" && len(c.Session.Secret) < MinSessionSecretLength {
		return fmt.Errorf("%w: must be at least %d characters, got %d",
			ErrWeakSessionSecret, MinSessionSecretLength, len(c.Session.Secret))
	}

	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.Retrieval.TopK)
	}

	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("%w: rps must be positive, got %g", ErrInvalidRateLimit, c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimit.Burst)
	}

	return nil
}
