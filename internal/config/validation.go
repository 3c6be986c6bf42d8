package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate checks the configuration for errors. Called by Load before the
// config reaches any component, so components can trust the values.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderOpenAI, ProviderGoogleAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (supported: openai, googleai, ollama)",
			ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.ClassifierModel) == "" {
		return fmt.Errorf("%w: classifier model is empty", ErrInvalidClassifierModel)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be between 0 and 2)",
			ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if strings.TrimSpace(c.ChartDir) == "" {
		return fmt.Errorf("%w: chart directory is empty", ErrInvalidChartDir)
	}
	if c.MaxCharts <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidMaxCharts, c.MaxCharts)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.Provider == ProviderOllama && strings.TrimSpace(c.OllamaHost) == "" {
		return fmt.Errorf("%w: ollama host is empty", ErrInvalidOllamaHost)
	}

	// API keys are consumed by the Genkit plugins directly; only presence
	// is checked here so startup fails before the first model call.
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingAPIKey)
		}
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingAPIKey)
		}
	}

	return nil
}
