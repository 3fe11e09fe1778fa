package llm_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/mock"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/service/llm"
	"github.com/secmon-lab/autocrm/pkg/service/retrieval"
)

func TestNew_RequiresClient(t *testing.T) {
	c, err := llm.New(nil)
	gt.Value(t, err).NotNil()
	gt.Value(t, c).Nil()
}

func newMockClient(t *testing.T, texts []string) (*llm.Client, *mock.SessionMock) {
	t.Helper()
	session := &mock.SessionMock{
		GenerateFunc: func(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
			return &gollem.Response{Texts: texts}, nil
		},
	}
	c, err := llm.New(&mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return session, nil
		},
	})
	gt.NoError(t, err).Required()
	return c, session
}

func TestClient_Complete(t *testing.T) {
	prompt := &model.Prompt{System: "You are a help assistant", Question: "How do I log in?"}

	t.Run("reply text is kept as generated", func(t *testing.T) {
		c, session := newMockClient(t, []string{"  Click ", "Sign in.\n"})
		reply, err := c.Complete(context.Background(), prompt)
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("  Click Sign in.\n")

		calls := session.GenerateCalls()
		gt.Array(t, calls).Length(1).Required()
		gt.Array(t, calls[0].Input).Length(1).Required()
		gt.Value(t, calls[0].Input[0]).Equal(gollem.Input(gollem.Text("How do I log in?")))
	})

	t.Run("empty text is returned without error", func(t *testing.T) {
		c, _ := newMockClient(t, []string{""})
		reply, err := c.Complete(context.Background(), prompt)
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("")
	})

	t.Run("response without text is an error", func(t *testing.T) {
		c, _ := newMockClient(t, nil)
		_, err := c.Complete(context.Background(), prompt)
		gt.Value(t, err).NotNil()
	})
}

func TestClient_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}

	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()

	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	c, err := llm.New(llmClient)
	gt.NoError(t, err).Required()
	gt.Value(t, c.Dimension()).Equal(llm.DefaultDimension)

	t.Run("Embed returns a vector of the configured dimension", func(t *testing.T) {
		a, err := c.Embed(ctx, "How do I create a workspace?")
		gt.NoError(t, err).Required()
		gt.Array(t, a).Length(llm.DefaultDimension)

		b, err := c.Embed(ctx, "Creating a new workspace from the dashboard")
		gt.NoError(t, err).Required()
		gt.Number(t, retrieval.Cosine(a, b)).Greater(0.3)
	})

	t.Run("Complete returns text", func(t *testing.T) {
		reply, err := c.Complete(ctx, &model.Prompt{
			System:   "You answer in one short sentence.",
			Question: "Say hello.",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, reply).NotEqual("")
	})
}
