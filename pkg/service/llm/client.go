package llm

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
)

// DefaultDimension is the embedding dimension requested from the provider.
// Gemini text-embedding-004 uses 768 dimensions.
const DefaultDimension = 768

// Client adapts a gollem LLM client to the Embedder and Completer interfaces
type Client struct {
	llmClient gollem.LLMClient
	dimension int
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithDimension sets the embedding dimension
func WithDimension(dim int) Option {
	return func(c *Client) {
		if dim > 0 {
			c.dimension = dim
		}
	}
}

// New creates a new Client with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (*Client, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &Client{
		llmClient: llmClient,
		dimension: DefaultDimension,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Dimension returns the configured embedding dimension
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed generates an embedding vector for the given text
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}

	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("no embedding returned")
	}

	return embeddings[0], nil
}

// Complete sends the system instruction and question as a fresh session and returns the reply text as generated
func (c *Client) Complete(ctx context.Context, prompt *model.Prompt) (string, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionSystemPrompt(prompt.System),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(prompt.Question)})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.New("no text in LLM response")
	}

	return strings.Join(resp.Texts, ""), nil
}
