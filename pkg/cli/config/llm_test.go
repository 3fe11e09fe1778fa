package config_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/cli/config"
)

func TestLLM_Configure(t *testing.T) {
	t.Run("returns nil client when gemini project is empty", func(t *testing.T) {
		cfg := config.NewLLMForTest(config.ProviderGemini, "", "")
		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("returns nil client when openai key is empty", func(t *testing.T) {
		cfg := config.NewLLMForTest(config.ProviderOpenAI, "", "")
		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		cfg := config.NewLLMForTest("claude-on-a-toaster", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidProvider)
	})

	t.Run("returns flags", func(t *testing.T) {
		var cfg config.LLM
		gt.Array(t, cfg.Flags()).Length(7)
	})
}

func TestLLM_Temperature(t *testing.T) {
	hot := 0.2

	t.Run("unset uses provider default", func(t *testing.T) {
		cfg := config.NewLLMForTest(config.ProviderGemini, "", "")
		cfg.Resolve(nil, nil)
		_, ok := cfg.Temperature()
		gt.Bool(t, ok).False()
	})

	t.Run("taken from [llm] section of the file", func(t *testing.T) {
		cfg := config.NewLLMForTest(config.ProviderGemini, "", "")
		cfg.Resolve(nil, &config.ChatFile{LLM: config.LLMSection{Temperature: &hot}})
		v, ok := cfg.Temperature()
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal(0.2)

		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("out of range is rejected", func(t *testing.T) {
		for _, v := range []float64{-0.1, 2.5, math.NaN()} {
			cfg := config.NewLLMForTest(config.ProviderGemini, "", "")
			cfg.Resolve(nil, &config.ChatFile{LLM: config.LLMSection{Temperature: &v}})
			_, err := cfg.Configure(t.Context())
			gt.Error(t, err).Is(config.ErrInvalidConfig)
		}
	})
}
