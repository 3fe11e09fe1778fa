package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/secmon-lab/autocrm/pkg/domain/model/config"
	"github.com/urfave/cli/v3"
)

// Chat holds the help chat settings. Values come from an optional TOML file;
// flags given explicitly on the command line override the file.
type Chat struct {
	path          string
	minScore      float64
	limit         int
	historyWindow int
	appName       string
	timeout       time.Duration

	file *ChatFile
}

// ChatFile is the layout of the TOML configuration file
type ChatFile struct {
	Chat ChatSection `toml:"chat"`
	LLM  LLMSection  `toml:"llm"`
}

// LLMSection is the [llm] table
type LLMSection struct {
	Temperature *float64 `toml:"temperature"`
}

// ChatSection is the [chat] table
type ChatSection struct {
	MinScore        *float64 `toml:"min_score"`
	Limit           *int     `toml:"limit"`
	HistoryWindow   *int     `toml:"history_window"`
	AppName         string   `toml:"app_name"`
	FallbackMessage string   `toml:"fallback_message"`
	ErrorMessage    string   `toml:"error_message"`
	Timeout         string   `toml:"timeout"`
}

// Flags returns CLI flags for chat configuration
func (x *Chat) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file",
			Sources:     cli.EnvVars("AUTOCRM_CONFIG"),
			Destination: &x.path,
		},
		&cli.FloatFlag{
			Name:        "min-score",
			Usage:       "Minimum cosine similarity for knowledge to be used as context",
			Value:       domainConfig.DefaultMinScore,
			Sources:     cli.EnvVars("AUTOCRM_MIN_SCORE"),
			Destination: &x.minScore,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of knowledge entries used as context (0 for no limit)",
			Value:       domainConfig.DefaultLimit,
			Sources:     cli.EnvVars("AUTOCRM_LIMIT"),
			Destination: &x.limit,
		},
		&cli.IntFlag{
			Name:        "history-window",
			Usage:       "Number of recent conversation turns included in the prompt",
			Value:       domainConfig.DefaultHistoryWindow,
			Sources:     cli.EnvVars("AUTOCRM_HISTORY_WINDOW"),
			Destination: &x.historyWindow,
		},
		&cli.StringFlag{
			Name:        "app-name",
			Usage:       "Application name used in the assistant instructions",
			Value:       domainConfig.DefaultAppName,
			Sources:     cli.EnvVars("AUTOCRM_APP_NAME"),
			Destination: &x.appName,
		},
		&cli.DurationFlag{
			Name:        "answer-timeout",
			Usage:       "Timeout of a single question (0 to disable)",
			Value:       domainConfig.DefaultTimeout,
			Sources:     cli.EnvVars("AUTOCRM_ANSWER_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

func (x *Chat) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("config", x.path),
		slog.Float64("min_score", x.minScore),
		slog.Int("limit", x.limit),
		slog.Int("history_window", x.historyWindow),
		slog.String("app_name", x.appName),
		slog.Duration("timeout", x.timeout),
	}
}

// Configure builds the chat settings. c is used to tell explicitly set flags from defaults.
func (x *Chat) Configure(c *cli.Command) (*domainConfig.ChatConfig, error) {
	cfg := domainConfig.DefaultChatConfig()

	if x.path != "" {
		file, err := LoadChatFile(x.path)
		if err != nil {
			return nil, err
		}
		if err := file.Chat.apply(cfg); err != nil {
			return nil, goerr.Wrap(err, "invalid chat section", goerr.V(ConfigPathKey, x.path))
		}
		x.file = file
	}

	isSet := func(name string) bool { return c == nil || c.IsSet(name) }
	if x.path == "" || isSet("min-score") {
		cfg.MinScore = x.minScore
	}
	if x.path == "" || isSet("limit") {
		cfg.Limit = x.limit
	}
	if x.path == "" || isSet("history-window") {
		cfg.HistoryWindow = x.historyWindow
	}
	if x.path == "" || isSet("app-name") {
		cfg.AppName = x.appName
	}
	if x.path == "" || isSet("answer-timeout") {
		cfg.Timeout = x.timeout
	}

	if err := ValidateChatConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// File returns the configuration file loaded by Configure, or nil
func (x *Chat) File() *ChatFile {
	return x.file
}

// LoadChatFile reads and parses a TOML configuration file
func LoadChatFile(path string) (*ChatFile, error) {
	// #nosec G304 - path is provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigFileNotFound, "failed to read config file", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var file ChatFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}
	return &file, nil
}

func (s ChatSection) apply(cfg *domainConfig.ChatConfig) error {
	if s.MinScore != nil {
		cfg.MinScore = *s.MinScore
	}
	if s.Limit != nil {
		cfg.Limit = *s.Limit
	}
	if s.HistoryWindow != nil {
		cfg.HistoryWindow = *s.HistoryWindow
	}
	if s.AppName != "" {
		cfg.AppName = s.AppName
	}
	if s.FallbackMessage != "" {
		cfg.FallbackMessage = s.FallbackMessage
	}
	if s.ErrorMessage != "" {
		cfg.ErrorMessage = s.ErrorMessage
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid timeout",
				goerr.V(FieldKey, "timeout"), goerr.V(ValueKey, s.Timeout))
		}
		cfg.Timeout = d
	}
	return nil
}

// ValidateChatConfig checks value ranges of the chat settings
func ValidateChatConfig(cfg *domainConfig.ChatConfig) error {
	if math.IsNaN(cfg.MinScore) || cfg.MinScore < -1 || cfg.MinScore > 1 {
		return goerr.Wrap(ErrInvalidConfig, "min_score must be between -1 and 1",
			goerr.V(FieldKey, "min_score"), goerr.V(ValueKey, cfg.MinScore))
	}
	if cfg.HistoryWindow < 0 {
		return goerr.Wrap(ErrInvalidConfig, "history_window must not be negative",
			goerr.V(FieldKey, "history_window"), goerr.V(ValueKey, cfg.HistoryWindow))
	}
	if cfg.AppName == "" {
		return goerr.Wrap(ErrInvalidConfig, "app_name is required", goerr.V(FieldKey, "app_name"))
	}
	if cfg.Timeout < 0 {
		return goerr.Wrap(ErrInvalidConfig, "timeout must not be negative",
			goerr.V(FieldKey, "timeout"), goerr.V(ValueKey, cfg.Timeout.String()))
	}
	return nil
}
