package retrieval

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/domain/model/config"
	"github.com/secmon-lab/autocrm/pkg/domain/types"
)

//go:embed prompt/help_system.md
var helpSystemPromptTmpl string

var helpSystemPrompt = template.Must(template.New("help_system").Parse(helpSystemPromptTmpl))

const (
	// DefaultHistoryWindow is the number of recent turns given to the model
	DefaultHistoryWindow = config.DefaultHistoryWindow
	// DefaultAppName is the product name used in the system instruction
	DefaultAppName = config.DefaultAppName
	// DefaultFallbackMessage is answered when no knowledge with text matched
	DefaultFallbackMessage = config.DefaultFallbackMessage

	contextDelimiter = "\n\n---\n\n"
)

// Decide returns NoContext when nothing ranked or no ranked entry has text
func Decide(ranked []model.ScoredEntry) types.ContextDecision {
	for i := range ranked {
		if ranked[i].Entry.HasText() {
			return types.ContextDecisionHasContext
		}
	}
	return types.ContextDecisionNoContext
}

// Assembly is the result of Assembler.Assemble.
// Prompt is nil and Fallback is set when Decision is NoContext.
type Assembly struct {
	Decision types.ContextDecision
	Prompt   *model.Prompt
	Fallback string

	// Knowledge and History are the rendered sections embedded in the prompt
	Knowledge string
	History   string
}

// Assembler builds the completion prompt from ranked knowledge and chat history
type Assembler struct {
	historyWindow   int
	appName         string
	fallbackMessage string
}

// AssemblerOption configures Assembler
type AssemblerOption func(*Assembler)

// WithHistoryWindow sets how many recent turns are rendered. Negative values are ignored.
func WithHistoryWindow(n int) AssemblerOption {
	return func(a *Assembler) {
		if n >= 0 {
			a.historyWindow = n
		}
	}
}

// WithAppName sets the product name used in the system instruction
func WithAppName(name string) AssemblerOption {
	return func(a *Assembler) {
		if name != "" {
			a.appName = name
		}
	}
}

// WithFallbackMessage sets the answer used when there is no context
func WithFallbackMessage(msg string) AssemblerOption {
	return func(a *Assembler) {
		if msg != "" {
			a.fallbackMessage = msg
		}
	}
}

// NewAssembler creates an Assembler
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		historyWindow:   DefaultHistoryWindow,
		appName:         DefaultAppName,
		fallbackMessage: DefaultFallbackMessage,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FallbackMessage returns the configured fallback answer
func (a *Assembler) FallbackMessage() string {
	return a.fallbackMessage
}

// Assemble decides between the fallback answer and a model prompt.
// history is the conversation before question; only the last window turns are used.
func (a *Assembler) Assemble(ranked []model.ScoredEntry, question string, history []model.ConversationTurn) (*Assembly, error) {
	decision := Decide(ranked)
	if !decision.HasContext() {
		return &Assembly{
			Decision: decision,
			Fallback: a.fallbackMessage,
		}, nil
	}

	knowledge := renderKnowledge(ranked)
	hist := renderHistory(windowTurns(history, a.historyWindow))

	data := struct {
		AppName   string
		Knowledge string
		History   string
	}{
		AppName:   a.appName,
		Knowledge: knowledge,
		History:   hist,
	}

	var buf bytes.Buffer
	if err := helpSystemPrompt.Execute(&buf, data); err != nil {
		return nil, goerr.Wrap(err, "failed to execute help system prompt template")
	}

	return &Assembly{
		Decision: decision,
		Prompt: &model.Prompt{
			System:   buf.String(),
			Question: question,
		},
		Knowledge: knowledge,
		History:   hist,
	}, nil
}

func renderKnowledge(ranked []model.ScoredEntry) string {
	blocks := make([]string, 0, len(ranked))
	for i := range ranked {
		e := &ranked[i].Entry
		if !e.HasText() {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Topic: %s\nSubtopic: %s\nContent: %s\nRelevance Score: %.4f",
			e.Topic, e.Subtopic, e.Text, ranked[i].Similarity))
	}
	return strings.Join(blocks, contextDelimiter)
}

func windowTurns(turns []model.ConversationTurn, n int) []model.ConversationTurn {
	if n <= 0 {
		return nil
	}
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

func renderHistory(turns []model.ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}
	return strings.Join(lines, "\n")
}
