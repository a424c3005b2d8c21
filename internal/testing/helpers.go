package testing

import (
	"time"

	"pkdindustries/deskshack/internal/config"
)

// DefaultTestConfig returns a minimal configuration for testing
func DefaultTestConfig() *config.Configuration {
	return &config.Configuration{
		API: &config.APIConfig{
			OpenAIKey: "test-key",
			Timeout:   5 * time.Second,
		},
		Model: &config.ModelConfig{
			Model:            "test/model",
			MaxTokens:        256,
			Temperature:      0.1,
			FinalTemperature: 0.2,
		},
		Bot: &config.BotConfig{
			Prompt:         "You are a test support assistant.",
			EnhancedPrompt: "\n\nProvide detailed, comprehensive responses with helpful context.",
			Verbose:        false,
		},
		Session: &config.SessionConfig{
			MaxHistory: 20,
			TTL:        time.Minute,
		},
		Flags: &config.FlagConfig{
			ContextKey:  "test",
			InitTimeout: time.Second,
		},
		Telemetry: &config.TelemetryConfig{
			Enabled: false,
		},
	}
}
