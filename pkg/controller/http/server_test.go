package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/autocrm/pkg/controller/http"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/domain/types"
	"github.com/secmon-lab/autocrm/pkg/repository/memory"
	"github.com/secmon-lab/autocrm/pkg/usecase"
)

type staticEmbedder struct{ vector []float64 }

func (e *staticEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return e.vector, nil
}

type staticCompleter struct{ reply string }

func (c *staticCompleter) Complete(ctx context.Context, prompt *model.Prompt) (string, error) {
	return c.reply, nil
}

func newTestServer(t *testing.T) *httpctrl.Server {
	t.Helper()
	ctx := context.Background()

	repo := memory.New()
	_, err := repo.Knowledge().Put(ctx, &model.KnowledgeEntry{
		ID:        "workspace",
		Topic:     "Getting Started",
		Text:      "Navigate to dashboard and click Create Workspace",
		Embedding: model.NumericEmbedding([]float64{1, 0}),
	})
	gt.NoError(t, err).Required()

	uc := usecase.New(repo,
		usecase.WithEmbedder(&staticEmbedder{vector: []float64{1, 0}}),
		usecase.WithCompleter(&staticCompleter{reply: "Click Create Workspace."}),
	)

	srv, err := httpctrl.New(uc.Help)
	gt.NoError(t, err).Required()
	return srv
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

type sessionBody struct {
	ID       string `json:"id"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/health", "")
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"ok"`)
}

func TestServer_ChatFlow(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/chat/sessions", "")
	gt.Value(t, w.Code).Equal(http.StatusCreated)

	var created sessionBody
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &created)).Required()
	gt.Value(t, created.ID).NotEqual("")
	gt.Array(t, created.Messages).Length(0)

	base := "/api/chat/sessions/" + created.ID

	w = do(t, srv, http.MethodPost, base+"/messages", `{"question":"How do I create a workspace?"}`)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	var turn model.ConversationTurn
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &turn)).Required()
	gt.Value(t, turn.Role).Equal(types.RoleAssistant)
	gt.Value(t, turn.Content).Equal("Click Create Workspace.")

	w = do(t, srv, http.MethodGet, base+"/messages", "")
	gt.Value(t, w.Code).Equal(http.StatusOK)
	var msgs sessionBody
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs)).Required()
	gt.Array(t, msgs.Messages).Length(2)
	gt.Value(t, msgs.Messages[0].Role).Equal("user")

	w = do(t, srv, http.MethodGet, "/api/chat/sessions", "")
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(created.ID)

	w = do(t, srv, http.MethodDelete, base, "")
	gt.Value(t, w.Code).Equal(http.StatusNoContent)

	w = do(t, srv, http.MethodGet, base, "")
	gt.Value(t, w.Code).Equal(http.StatusNotFound)
}

func TestServer_AskErrors(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/chat/sessions/unknown/messages", `{"question":"hi"}`)
	gt.Value(t, w.Code).Equal(http.StatusNotFound)

	w = do(t, srv, http.MethodPost, "/api/chat/sessions", "")
	var created sessionBody
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &created)).Required()

	w = do(t, srv, http.MethodPost, "/api/chat/sessions/"+created.ID+"/messages", `{"question":"  "}`)
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)

	w = do(t, srv, http.MethodPost, "/api/chat/sessions/"+created.ID+"/messages", `not json`)
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestServer_SearchKnowledge(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/knowledge/search?q=workspace&limit=5", "")
	gt.Value(t, w.Code).Equal(http.StatusOK)

	var resp struct {
		Results []struct {
			ID         string  `json:"id"`
			Topic      string  `json:"topic"`
			Similarity float64 `json:"similarity"`
		} `json:"results"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
	gt.Array(t, resp.Results).Length(1)
	gt.Value(t, resp.Results[0].ID).Equal("workspace")
	gt.Value(t, resp.Results[0].Similarity).Equal(1.0)

	w = do(t, srv, http.MethodGet, "/api/knowledge/search?q=workspace&limit=abc", "")
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)

	w = do(t, srv, http.MethodGet, "/api/knowledge/search", "")
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestNew_RequiresHelpUseCase(t *testing.T) {
	_, err := httpctrl.New(nil)
	gt.Value(t, err).NotNil()
}
