package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/cli/config"
	domainConfig "github.com/secmon-lab/autocrm/pkg/domain/model/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autocrm.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestChat_Configure(t *testing.T) {
	t.Run("flags only", func(t *testing.T) {
		cfg := config.NewChatForTest("", 0.5, 3, 4, "Helpdesk", 10*time.Second)
		got, err := cfg.Configure(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, got.MinScore).Equal(0.5)
		gt.Value(t, got.Limit).Equal(3)
		gt.Value(t, got.HistoryWindow).Equal(4)
		gt.Value(t, got.AppName).Equal("Helpdesk")
		gt.Value(t, got.Timeout).Equal(10 * time.Second)
		gt.Value(t, got.FallbackMessage).Equal(domainConfig.DefaultFallbackMessage)
	})

	t.Run("file values", func(t *testing.T) {
		path := writeConfig(t, `
[chat]
min_score = 0.45
limit = 5
history_window = 2
app_name = "Support Desk"
fallback_message = "Nothing found."
error_message = "Oops."
timeout = "15s"
`)
		cfg := config.NewChatForTest(path, 0.3, 10, 6, "AutoCRM", time.Minute)
		got, err := cfg.Configure(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, got.FallbackMessage).Equal("Nothing found.")
		gt.Value(t, got.ErrorMessage).Equal("Oops.")
		gt.Value(t, cfg.File()).NotNil()
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := config.NewChatForTest(filepath.Join(t.TempDir(), "none.toml"), 0.3, 10, 6, "AutoCRM", time.Minute)
		_, err := cfg.Configure(nil)
		gt.Error(t, err).Is(config.ErrConfigFileNotFound)
	})

	t.Run("broken TOML", func(t *testing.T) {
		path := writeConfig(t, "[chat\nmin_score = ")
		cfg := config.NewChatForTest(path, 0.3, 10, 6, "AutoCRM", time.Minute)
		_, err := cfg.Configure(nil)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid timeout in file", func(t *testing.T) {
		path := writeConfig(t, "[chat]\ntimeout = \"soon\"\n")
		cfg := config.NewChatForTest(path, 0.3, 10, 6, "AutoCRM", time.Minute)
		_, err := cfg.Configure(nil)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestLoadChatFile(t *testing.T) {
	path := writeConfig(t, `
[chat]
min_score = 0.45
limit = 0
timeout = "15s"

[llm]
temperature = 0.4
`)
	file, err := config.LoadChatFile(path)
	gt.NoError(t, err).Required()
	gt.Value(t, file.Chat.MinScore).NotNil().Required()
	gt.Value(t, *file.Chat.MinScore).Equal(0.45)
	gt.Value(t, file.Chat.Limit).NotNil().Required()
	gt.Value(t, *file.Chat.Limit).Equal(0)
	gt.Value(t, file.Chat.HistoryWindow).Nil()
	gt.Value(t, file.Chat.Timeout).Equal("15s")
	gt.Value(t, file.LLM.Temperature).NotNil().Required()
	gt.Value(t, *file.LLM.Temperature).Equal(0.4)
}

func TestValidateChatConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*domainConfig.ChatConfig)
		wantErr bool
	}{
		{name: "defaults", modify: func(*domainConfig.ChatConfig) {}},
		{name: "no limit", modify: func(c *domainConfig.ChatConfig) { c.Limit = 0 }},
		{name: "no timeout", modify: func(c *domainConfig.ChatConfig) { c.Timeout = 0 }},
		{name: "min score too high", modify: func(c *domainConfig.ChatConfig) { c.MinScore = 1.5 }, wantErr: true},
		{name: "min score NaN", modify: func(c *domainConfig.ChatConfig) { c.MinScore = math.NaN() }, wantErr: true},
		{name: "min score too low", modify: func(c *domainConfig.ChatConfig) { c.MinScore = -2 }, wantErr: true},
		{name: "negative history window", modify: func(c *domainConfig.ChatConfig) { c.HistoryWindow = -1 }, wantErr: true},
		{name: "empty app name", modify: func(c *domainConfig.ChatConfig) { c.AppName = "" }, wantErr: true},
		{name: "negative timeout", modify: func(c *domainConfig.ChatConfig) { c.Timeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domainConfig.DefaultChatConfig()
			tt.modify(cfg)
			err := config.ValidateChatConfig(cfg)
			if tt.wantErr {
				gt.Error(t, err).Is(config.ErrInvalidConfig)
				return
			}
			gt.NoError(t, err)
		})
	}
}
