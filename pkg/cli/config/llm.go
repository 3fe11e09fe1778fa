package config

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/secmon-lab/autocrm/pkg/service/llm"
	"github.com/urfave/cli/v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// LLM holds configuration for the embedding and completion provider
type LLM struct {
	provider     string
	model        string
	dimension    int
	projectID    string
	location     string
	openaiAPIKey string `masq:"secret"`

	temperatureFlag float64
	temperature     *float64
}

const (
	minTemperature = 0.0
	maxTemperature = 2.0
)

// Flags returns CLI flags for LLM configuration
func (x *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider [gemini|openai]",
			Value:       ProviderGemini,
			Sources:     cli.EnvVars("AUTOCRM_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Usage:       "Completion model name. The provider default is used when empty",
			Sources:     cli.EnvVars("AUTOCRM_LLM_MODEL"),
			Destination: &x.model,
		},
		&cli.FloatFlag{
			Name:        "llm-temperature",
			Usage:       "Sampling temperature of the completion model (0-2). The provider default is used when unset",
			Sources:     cli.EnvVars("AUTOCRM_LLM_TEMPERATURE"),
			Destination: &x.temperatureFlag,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding vector dimension",
			Value:       llm.DefaultDimension,
			Sources:     cli.EnvVars("AUTOCRM_EMBEDDING_DIMENSION"),
			Destination: &x.dimension,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("AUTOCRM_GEMINI_PROJECT"),
			Destination: &x.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("AUTOCRM_GEMINI_LOCATION"),
			Destination: &x.location,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("AUTOCRM_OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
	}
}

func (x *LLM) LogAttrs() []slog.Attr {
	temperature := "default"
	if x.temperature != nil {
		temperature = strconv.FormatFloat(*x.temperature, 'f', -1, 64)
	}
	return []slog.Attr{
		slog.String("provider", x.provider),
		slog.String("model", x.model),
		slog.String("temperature", temperature),
		slog.Int("dimension", x.dimension),
		slog.String("project_id", x.projectID),
		slog.String("location", x.location),
	}
}

// Dimension returns the configured embedding dimension
func (x *LLM) Dimension() int {
	return x.dimension
}

// Resolve settles values that may come from either the command line or the configuration file.
// An explicitly set --llm-temperature (flag or env) wins over [llm] temperature in the file.
func (x *LLM) Resolve(c *cli.Command, file *ChatFile) {
	switch {
	case c != nil && c.IsSet("llm-temperature"):
		t := x.temperatureFlag
		x.temperature = &t
	case file != nil && file.LLM.Temperature != nil:
		t := *file.LLM.Temperature
		x.temperature = &t
	}
}

// Temperature returns the resolved temperature and whether one is set
func (x *LLM) Temperature() (float64, bool) {
	if x.temperature == nil {
		return 0, false
	}
	return *x.temperature, true
}

func (x *LLM) validate() error {
	if t, ok := x.Temperature(); ok && (math.IsNaN(t) || t < minTemperature || t > maxTemperature) {
		return goerr.Wrap(ErrInvalidConfig, "temperature must be between 0 and 2",
			goerr.V(FieldKey, "temperature"), goerr.V(ValueKey, t))
	}
	return nil
}

// Configure creates the LLM client from the configured flags.
// Returns nil when the provider credentials are not configured; the help chat then
// answers every question with the error message.
func (x *LLM) Configure(ctx context.Context) (*llm.Client, error) {
	if err := x.validate(); err != nil {
		return nil, err
	}

	var client gollem.LLMClient

	switch x.provider {
	case ProviderGemini:
		if x.projectID == "" {
			return nil, nil
		}
		var opts []gemini.Option
		if x.model != "" {
			opts = append(opts, gemini.WithModel(x.model))
		}
		if t, ok := x.Temperature(); ok {
			opts = append(opts, gemini.WithTemperature(float32(t)))
		}
		c, err := gemini.New(ctx, x.projectID, x.location, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client",
				goerr.V("project_id", x.projectID), goerr.V("location", x.location))
		}
		client = c

	case ProviderOpenAI:
		if x.openaiAPIKey == "" {
			return nil, nil
		}
		var opts []openai.Option
		if x.model != "" {
			opts = append(opts, openai.WithModel(x.model))
		}
		if t, ok := x.Temperature(); ok {
			opts = append(opts, openai.WithTemperature(float32(t)))
		}
		c, err := openai.New(ctx, x.openaiAPIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		client = c

	default:
		return nil, goerr.Wrap(ErrInvalidProvider, "failed to configure LLM", goerr.V(ProviderKey, x.provider))
	}

	return llm.New(client, llm.WithDimension(x.dimension))
}
