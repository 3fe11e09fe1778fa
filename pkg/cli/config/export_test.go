package config

import "time"

func NewLLMForTest(provider, projectID, apiKey string) *LLM {
	return &LLM{
		provider:     provider,
		projectID:    projectID,
		location:     "us-central1",
		openaiAPIKey: apiKey,
		dimension:    768,
	}
}

func NewRepositoryForTest(backend, projectID, dsn string) *Repository {
	return &Repository{
		backend:   backend,
		projectID: projectID,
		dsn:       dsn,
	}
}

func NewChatForTest(path string, minScore float64, limit, historyWindow int, appName string, timeout time.Duration) *Chat {
	return &Chat{
		path:          path,
		minScore:      minScore,
		limit:         limit,
		historyWindow: historyWindow,
		appName:       appName,
		timeout:       timeout,
	}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}
