package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/cartwright0/cartwright/internal/agent"
	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/session"
)

func TestChat_NewConversation(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/chat", "alice",
		`{"message": "show me backpacks"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[chatResponse](t, rec)
	if body.Response != "Here is what I found." {
		t.Errorf("response = %q", body.Response)
	}
	if body.ConversationID == "" {
		t.Fatal("missing conversationId")
	}

	call := ts.assistant.lastCall(t)
	if call.UserID != "alice" || call.Input != "show me backpacks" {
		t.Errorf("call = %+v", call)
	}
	if call.HistoryLen != 0 {
		t.Errorf("history len = %d, want 0 for new conversation", call.HistoryLen)
	}

	// The turn must be persisted: one user and one model message.
	conv, err := ts.sessions.List(context.Background(), "alice", 10, 0)
	if err != nil || len(conv) != 1 {
		t.Fatalf("conversations = %v, err = %v", conv, err)
	}
	msgs, err := ts.sessions.Messages(context.Background(), conv[0].ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "model" {
		t.Errorf("persisted messages = %+v", msgs)
	}
}

func TestChat_ExistingConversationCarriesHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	conv, err := ts.sessions.Create(context.Background(), "alice", "prior chat")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ts.sessions.Append(context.Background(), conv.ID, []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("hello")),
		ai.NewModelMessage(ai.NewTextPart("hi there")),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/api/chat", "alice",
		fmt.Sprintf(`{"message": "and now?", "conversationId": %q}`, conv.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	call := ts.assistant.lastCall(t)
	if call.HistoryLen != 2 {
		t.Errorf("history len = %d, want 2", call.HistoryLen)
	}

	body := decodeBody[chatResponse](t, rec)
	if body.ConversationID != conv.ID.String() {
		t.Errorf("conversationId = %q, want %q", body.ConversationID, conv.ID)
	}
}

func TestChat_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"empty message", `{"message": "   "}`},
		{"message too long", fmt.Sprintf(`{"message": %q}`, strings.Repeat("x", maxMessageLen+1))},
		{"bad conversation id", `{"message": "hi", "conversationId": "not-a-uuid"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/chat", "alice", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
	if ts.assistant.callCount() != 0 {
		t.Error("assistant called for invalid requests")
	}
}

func TestChat_ForeignConversationHidden(t *testing.T) {
	ts := newTestServer(t, nil)

	conv, err := ts.sessions.Create(context.Background(), "bob", "bob's chat")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/api/chat", "alice",
		fmt.Sprintf(`{"message": "hi", "conversationId": %q}`, conv.ID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"quota", fmt.Errorf("%w: 429", agent.ErrQuotaExhausted), http.StatusTooManyRequests, "quota_error"},
		{"auth", fmt.Errorf("%w: bad key", agent.ErrAuthFailed), http.StatusBadGateway, "auth_error"},
		{"generic", errors.New("boom"), http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.assistant.err = tt.err

			rec := ts.do(t, http.MethodPost, "/api/chat", "alice", `{"message": "hi"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeBody[errorBody](t, rec)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	Event string
	Data  string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.Data = strings.TrimPrefix(line, "data: ")
			}
		}
		if ev.Event != "" {
			events = append(events, ev)
		}
	}
	return events
}

func TestChatStream(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.assistant.response = "abcdefghijkl"

	rec := ts.do(t, http.MethodPost, "/api/chat/stream", "alice", `{"message": "hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content-type = %q", got)
	}

	events := parseSSE(t, rec.Body.String())
	if len(events) != 4 {
		t.Fatalf("events = %+v, want 3 chunks and a done", events)
	}

	var text strings.Builder
	for _, ev := range events[:3] {
		if ev.Event != "chunk" {
			t.Fatalf("event = %q, want chunk", ev.Event)
		}
		payload := struct {
			Text string `json:"text"`
		}{}
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			t.Fatalf("chunk payload %q: %v", ev.Data, err)
		}
		text.WriteString(payload.Text)
	}
	if text.String() != "abcdefghijkl" {
		t.Errorf("reassembled text = %q", text.String())
	}
	if events[3].Event != "done" {
		t.Errorf("last event = %q, want done", events[3].Event)
	}

	// Streaming persists the turn too.
	conv, err := ts.sessions.List(context.Background(), "alice", 10, 0)
	if err != nil || len(conv) != 1 {
		t.Fatalf("conversations = %v, err = %v", conv, err)
	}
	msgs, _ := ts.sessions.Messages(context.Background(), conv[0].ID)
	if len(msgs) != 2 {
		t.Errorf("persisted messages = %d, want 2", len(msgs))
	}
}

func TestChatStream_ErrorEvent(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.assistant.err = fmt.Errorf("%w: out of quota", agent.ErrQuotaExhausted)

	rec := ts.do(t, http.MethodPost, "/api/chat/stream", "alice", `{"message": "hi"}`)
	events := parseSSE(t, rec.Body.String())
	if len(events) != 1 || events[0].Event != "error" {
		t.Fatalf("events = %+v, want single error", events)
	}

	var body errorBody
	if err := json.Unmarshal([]byte(events[0].Data), &body); err != nil {
		t.Fatalf("error payload: %v", err)
	}
	if body.Code != "quota_error" {
		t.Errorf("code = %q, want quota_error", body.Code)
	}
}

func TestCartSnapshot(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	if err := ts.carts.Upsert(ctx, "alice", cart.Line{ProductID: 1, Title: "Backpack", Price: 109.95, Quantity: 2}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := ts.carts.Upsert(ctx, "alice", cart.Line{ProductID: 2, Title: "T-Shirt", Price: 22.3, Quantity: 1}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/cart", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	snap := decodeBody[cartSnapshot](t, rec)
	if len(snap.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(snap.Items))
	}
	want := 109.95*2 + 22.3
	if snap.Total < want-0.001 || snap.Total > want+0.001 {
		t.Errorf("total = %v, want %v", snap.Total, want)
	}

	// Another user's cart is empty.
	other := decodeBody[cartSnapshot](t, ts.do(t, http.MethodGet, "/api/cart", "bob", ""))
	if len(other.Items) != 0 {
		t.Errorf("bob items = %d, want 0", len(other.Items))
	}
}

func TestConversationCRUD(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/conversations", "alice", `{"title": "gift ideas"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	created := decodeBody[session.Conversation](t, rec)
	if created.Title != "gift ideas" {
		t.Errorf("title = %q", created.Title)
	}

	list := decodeBody[struct {
		Conversations []session.Conversation `json:"conversations"`
	}](t, ts.do(t, http.MethodGet, "/api/conversations", "alice", ""))
	if len(list.Conversations) != 1 {
		t.Fatalf("list = %+v", list)
	}

	msgs := ts.do(t, http.MethodGet, "/api/conversations/"+created.ID.String()+"/messages", "alice", "")
	if msgs.Code != http.StatusOK {
		t.Fatalf("messages status = %d", msgs.Code)
	}

	del := ts.do(t, http.MethodDelete, "/api/conversations/"+created.ID.String(), "alice", "")
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", del.Code)
	}

	gone := ts.do(t, http.MethodGet, "/api/conversations/"+created.ID.String()+"/messages", "alice", "")
	if gone.Code != http.StatusNotFound {
		t.Fatalf("after delete status = %d, want 404", gone.Code)
	}
}

func TestConversationMessages_InvalidID(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/conversations/nope/messages", "alice", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
