package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/usecase"
	"github.com/secmon-lab/autocrm/pkg/utils/errutil"
)

type sessionResponse struct {
	ID        model.SessionID          `json:"id"`
	CreatedAt time.Time                `json:"created_at"`
	Messages  []model.ConversationTurn `json:"messages"`
}

type sessionListResponse struct {
	Sessions []model.SessionID `json:"sessions"`
}

type messagesResponse struct {
	Messages []model.ConversationTurn `json:"messages"`
}

type askRequest struct {
	Question string `json:"question"`
}

type searchResult struct {
	ID         model.KnowledgeID `json:"id"`
	Topic      string            `json:"topic"`
	Subtopic   string            `json:"subtopic"`
	Text       string            `json:"text"`
	Similarity float64           `json:"similarity"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func toSessionResponse(s *model.ConversationSession) sessionResponse {
	return sessionResponse{
		ID:        s.ID(),
		CreatedAt: s.CreatedAt(),
		Messages:  s.Turns(),
	}
}

// statusOf maps caller errors of the help use case to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrEmbedderNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func sessionIDParam(r *http.Request) model.SessionID {
	return model.SessionID(chi.URLParam(r, "sessionID"))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, sessionListResponse{
		Sessions: s.help.ListSessionIDs(r.Context()),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	session := s.help.StartSession(r.Context())
	writeJSON(r.Context(), w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.help.GetSession(r.Context(), sessionIDParam(r))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.help.DeleteSession(r.Context(), sessionIDParam(r)); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	session, err := s.help.GetSession(r.Context(), sessionIDParam(r))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, messagesResponse{Messages: session.Turns()})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	turn, err := s.help.Ask(r.Context(), sessionIDParam(r), req.Question)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, turn)
}

func (s *Server) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errutil.HandleHTTP(r.Context(), w, goerr.New("invalid limit", goerr.V("limit", v)), http.StatusBadRequest)
			return
		}
		limit = n
	}

	ranked, err := s.help.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}

	resp := searchResponse{Results: make([]searchResult, len(ranked))}
	for i, e := range ranked {
		resp.Results[i] = searchResult{
			ID:         e.Entry.ID,
			Topic:      e.Entry.Topic,
			Subtopic:   e.Entry.Subtopic,
			Text:       e.Entry.Text,
			Similarity: e.Similarity,
		}
	}

	writeJSON(r.Context(), w, http.StatusOK, resp)
}
