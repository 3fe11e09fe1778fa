package http

import (
	"context"
	"encoding/json"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/utils/errutil"
)

// maxRequestBytes bounds JSON request bodies
const maxRequestBytes = 64 << 10

// HelpUseCase is the part of the help chat used by the HTTP API
type HelpUseCase interface {
	StartSession(ctx context.Context) *model.ConversationSession
	GetSession(ctx context.Context, id model.SessionID) (*model.ConversationSession, error)
	DeleteSession(ctx context.Context, id model.SessionID) error
	ListSessionIDs(ctx context.Context) []model.SessionID
	Ask(ctx context.Context, id model.SessionID, question string) (*model.ConversationTurn, error)
	Search(ctx context.Context, question string, limit int) ([]model.ScoredEntry, error)
}

type Server struct {
	router *chi.Mux
	help   HelpUseCase
	sentry bool
}

type Options func(*Server)

// WithSentry recovers panics through Sentry and attaches a hub to each request
func WithSentry(enabled bool) Options {
	return func(s *Server) {
		s.sentry = enabled
	}
}

func New(help HelpUseCase, opts ...Options) (*Server, error) {
	if help == nil {
		return nil, goerr.New("help use case is required")
	}

	r := chi.NewRouter()

	s := &Server{
		router: r,
		help:   help,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	if s.sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(limitBody(maxRequestBytes))

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.createSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Get("/messages", s.listMessages)
				r.Post("/messages", s.postMessage)
			})
		})

		r.Get("/knowledge/search", s.searchKnowledge)
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}
