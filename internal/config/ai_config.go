package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type aiProvider string

const (
	ProviderGemini aiProvider = "gemini"
	ProviderOpenAI aiProvider = "openai"
)

type AIConfig struct {
	Provider             aiProvider `mapstructure:"provider"`
	Key                  string     `mapstructure:"key"`
	Model                string     `mapstructure:"model"`
	EmbeddingModel       string     `mapstructure:"embedding_model"`
	MaxRequestsPerMinute float32    `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerDay    float32    `mapstructure:"max_requests_per_day"`
}

func (config AIConfig) validate() error {

	var missingFields []string

	if config.Key == "" {
		missingFields = append(missingFields, "key")
	}
	if config.Model == "" {
		missingFields = append(missingFields, "model")
	}
	if config.EmbeddingModel == "" {
		missingFields = append(missingFields, "embedding_model")
	}

	if err := missingFieldsError(missingFields); err != nil {
		return err
	}

	switch config.Provider {
	case ProviderGemini, ProviderOpenAI:
		return nil
	default:
		return fmt.Errorf("unknown ai provider: %s", config.Provider)
	}
}

func (config AIConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"ai.provider": "AI_PROVIDER",
		"ai.key":      "AI_KEY",
		"ai.model":    "AI_MODEL",
	})
}
