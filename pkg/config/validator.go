package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if c.Server.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_limit",
			Message: "rate_limit must not be negative",
		})
	}

	for _, origin := range c.Server.AllowedOrigins {
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "server.allowed_origins",
				Message: fmt.Sprintf("invalid origin: %s", origin),
			})
		}
	}

	// Validate Vision config
	if c.Vision.ModelPath == "" {
		errors = append(errors, ValidationError{
			Field:   "vision.model_path",
			Message: "model path is required",
		})
	}

	if c.Vision.ModelURL != "" {
		if u, err := url.Parse(c.Vision.ModelURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, ValidationError{
				Field:   "vision.model_url",
				Message: "invalid model URL",
			})
		}
	}

	if c.Vision.Confidence <= 0 || c.Vision.Confidence >= 1 {
		errors = append(errors, ValidationError{
			Field:   "vision.confidence",
			Message: "confidence must be between 0 and 1",
		})
	}

	if c.Vision.IoU <= 0 || c.Vision.IoU >= 1 {
		errors = append(errors, ValidationError{
			Field:   "vision.iou",
			Message: "iou must be between 0 and 1",
		})
	}

	if c.Vision.InputSize < 32 || c.Vision.InputSize%32 != 0 {
		errors = append(errors, ValidationError{
			Field:   "vision.input_size",
			Message: "input_size must be a positive multiple of 32",
		})
	}

	// Validate Vector config
	switch c.Vector.Backend {
	case "chromem":
		if c.Vector.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.path",
				Message: "path is required for the chromem backend",
			})
		}
	case "pgvector":
		if _, err := url.Parse(c.Vector.DatabaseURL); err != nil || c.Vector.DatabaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.database_url",
				Message: "invalid database URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "vector.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.Vector.Backend),
		})
	}

	if c.Vector.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Vector.NResults < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector.n_results",
			Message: "n_results must be positive",
		})
	}

	// Validate Embedder config
	if c.Embedder.Provider != "local" && c.Embedder.Provider != "ollama" {
		errors = append(errors, ValidationError{
			Field:   "embedder.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.Embedder.Provider),
		})
	}

	if c.Embedder.Dimensions < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedder.dimensions",
			Message: "dimensions must be positive",
		})
	}

	// Validate LLM config
	if c.LLM.Provider != "googleai" && c.LLM.Provider != "ollama" {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.LLM.Provider),
		})
	}

	for _, model := range c.LLM.Models {
		if strings.TrimSpace(model) == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.models",
				Message: "model names must not be empty",
			})
			break
		}
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate History config
	if c.History.Limit < 1 {
		errors = append(errors, ValidationError{
			Field:   "history.limit",
			Message: "limit must be positive",
		})
	}

	// Validate Log config
	switch c.Log.Format {
	case "console", "json":
	default:
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: "format must be console or json",
		})
	}

	return errors
}
