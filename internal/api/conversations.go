package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/cartwright0/cartwright/internal/session"
)

const defaultListLimit = 50

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)

	list, err := s.sessions.List(r.Context(), userID(r), limit, offset)
	if err != nil {
		s.logger.Error("listing conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "error", "failed to list conversations")
		return
	}
	if list == nil {
		list = []*session.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": list})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "error", "invalid JSON body")
		return
	}

	conv, err := s.sessions.Create(r.Context(), userID(r), req.Title)
	if err != nil {
		s.logger.Error("creating conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "error", "failed to create conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversationForUser(w, r, userID(r), r.PathValue("id"))
	if !ok {
		return
	}

	msgs, err := s.sessions.Messages(r.Context(), conv.ID)
	if err != nil {
		s.logger.Error("loading messages", "error", err, "conversation_id", conv.ID)
		writeError(w, http.StatusInternalServerError, "error", "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []*session.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversationForUser(w, r, userID(r), r.PathValue("id"))
	if !ok {
		return
	}

	if err := s.sessions.Delete(r.Context(), conv.ID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "error", "conversation not found")
			return
		}
		s.logger.Error("deleting conversation", "error", err, "conversation_id", conv.ID)
		writeError(w, http.StatusInternalServerError, "error", "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// conversationForUser parses the ID, loads the conversation and checks
// ownership. Foreign conversations read as not found so IDs cannot be
// probed across users. A false return means the response is written.
func (s *Server) conversationForUser(w http.ResponseWriter, r *http.Request, user, rawID string) (*session.Conversation, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "error", "invalid conversation id")
		return nil, false
	}

	conv, err := s.sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "error", "conversation not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("getting conversation", "error", err, "conversation_id", id)
		writeError(w, http.StatusInternalServerError, "error", "failed to load conversation")
		return nil, false
	}
	if conv.UserID != user {
		writeError(w, http.StatusNotFound, "error", "conversation not found")
		return nil, false
	}
	return conv, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
