package config

import "time"

// Defaults of the help chat
const (
	DefaultMinScore        = 0.3
	DefaultLimit           = 10
	DefaultHistoryWindow   = 6
	DefaultAppName         = "AutoCRM"
	DefaultFallbackMessage = "I don't have properly formatted information to answer that question yet. Please try rephrasing it or contact your workspace administrator."
	DefaultErrorMessage    = "Sorry, I ran into a problem while answering your question. Please try again in a moment."
	DefaultTimeout         = 60 * time.Second
)

// ChatConfig holds retrieval and answer settings of the help chat
type ChatConfig struct {
	MinScore        float64
	Limit           int // <= 0 means no limit
	HistoryWindow   int
	AppName         string
	FallbackMessage string
	ErrorMessage    string
	Timeout         time.Duration // <= 0 disables the per question timeout
}

// DefaultChatConfig returns the reference settings
func DefaultChatConfig() *ChatConfig {
	return &ChatConfig{
		MinScore:        DefaultMinScore,
		Limit:           DefaultLimit,
		HistoryWindow:   DefaultHistoryWindow,
		AppName:         DefaultAppName,
		FallbackMessage: DefaultFallbackMessage,
		ErrorMessage:    DefaultErrorMessage,
		Timeout:         DefaultTimeout,
	}
}
