package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/cartwright0/cartwright/internal/agent"
	"github.com/cartwright0/cartwright/internal/session"
)

// maxMessageLen bounds a single chat message. Matches nothing in the model
// contract; it just keeps request bodies sane.
const maxMessageLen = 8192

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

// handleChat runs one synchronous conversation turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, conv, ok := s.prepareChat(w, r)
	if !ok {
		return
	}

	history, err := s.sessions.History(r.Context(), conv.ID)
	if err != nil {
		s.logger.Error("loading history", "error", err, "conversation_id", conv.ID)
		writeError(w, http.StatusInternalServerError, "error", "failed to load conversation")
		return
	}

	user := userID(r)
	resp, err := s.agent.Run(r.Context(), user, req.Message, history)
	if err != nil {
		status, code := chatErrorStatus(err)
		s.logger.Error("agent run failed", "error", err, "code", code)
		writeError(w, status, code, "assistant is unavailable")
		return
	}

	s.persistTurn(r.Context(), conv.ID, req.Message, resp.FinalText)
	writeJSON(w, http.StatusOK, chatResponse{
		Response:       resp.FinalText,
		ConversationID: conv.ID.String(),
	})
}

// handleChatStream runs one turn and streams the answer over SSE.
// Events: chunk ({"text": ...}), terminal done, or error with a code
// distinguishing quota and auth failures.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, conv, ok := s.prepareChat(w, r)
	if !ok {
		return
	}

	history, err := s.sessions.History(r.Context(), conv.ID)
	if err != nil {
		s.logger.Error("loading history", "error", err, "conversation_id", conv.ID)
		writeError(w, http.StatusInternalServerError, "error", "failed to load conversation")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error", "streaming unsupported")
		return
	}

	user := userID(r)
	resp, err := s.agent.Run(r.Context(), user, req.Message, history)
	if err != nil {
		_, code := chatErrorStatus(err)
		s.logger.Error("agent run failed", "error", err, "code", code)
		_ = sse.writeError(code, "assistant is unavailable")
		return
	}

	s.persistTurn(r.Context(), conv.ID, req.Message, resp.FinalText)

	for chunk := range s.agent.Chunks(resp.FinalText) {
		if r.Context().Err() != nil {
			// Client went away; the turn is already persisted.
			return
		}
		if err := sse.writeChunk(chunk); err != nil {
			s.logger.Debug("stream write failed", "error", err)
			return
		}
	}
	_ = sse.writeDone(conv.ID.String())
}

// prepareChat decodes the request and resolves the target conversation,
// creating one when no ID is given. A false return means the response has
// already been written.
func (s *Server) prepareChat(w http.ResponseWriter, r *http.Request) (chatRequest, *session.Conversation, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "error", "invalid JSON body")
		return req, nil, false
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "error", "message is required")
		return req, nil, false
	}
	if len(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "error", "message too long")
		return req, nil, false
	}

	user := userID(r)
	conv, ok := s.resolveConversation(w, r, user, req)
	return req, conv, ok
}

func (s *Server) resolveConversation(w http.ResponseWriter, r *http.Request, user string, req chatRequest) (*session.Conversation, bool) {
	if req.ConversationID == "" {
		conv, err := s.sessions.Create(r.Context(), user, session.TitleFromInput(req.Message))
		if err != nil {
			s.logger.Error("creating conversation", "error", err)
			writeError(w, http.StatusInternalServerError, "error", "failed to create conversation")
			return nil, false
		}
		return conv, true
	}

	conv, ok := s.conversationForUser(w, r, user, req.ConversationID)
	return conv, ok
}

// persistTurn appends the user and assistant messages. Best-effort: a
// persistence failure must not fail a turn that already ran.
func (s *Server) persistTurn(ctx context.Context, convID uuid.UUID, input, answer string) {
	if err := s.sessions.Append(ctx, convID, []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(input)),
		ai.NewModelMessage(ai.NewTextPart(answer)),
	}); err != nil {
		s.logger.Warn("appending turn to conversation", "error", err, "conversation_id", convID)
	}
}

// chatErrorStatus maps agent failure classes to HTTP status and SSE codes.
func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrQuotaExhausted):
		return http.StatusTooManyRequests, "quota_error"
	case errors.Is(err, agent.ErrAuthFailed):
		return http.StatusBadGateway, "auth_error"
	default:
		return http.StatusInternalServerError, "error"
	}
}
