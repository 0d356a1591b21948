package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/dreamer/config"
	"github.com/hupe1980/dreamer/model"
	anthropicmodel "github.com/hupe1980/dreamer/model/anthropic"
	"github.com/hupe1980/dreamer/model/ollama"
	"github.com/hupe1980/dreamer/model/openai"
)

// newModel builds the backend selected by cfg.Provider.
func newModel(cfg config.ModelConfig) (model.TextModel, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.Name
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(cfg.Name)
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
		}), nil
	case "ollama":
		return ollama.NewModel(func(o *ollama.Options) {
			o.Model = cfg.Name
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
