package api

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"go.uber.org/goleak"

	"github.com/cartwright0/cartwright/internal/agent"
	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type assistantCall struct {
	UserID     string
	Input      string
	HistoryLen int
}

// fakeAssistant returns a fixed answer and records calls.
type fakeAssistant struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []assistantCall
}

func (f *fakeAssistant) Run(_ context.Context, userID, input string, history []*ai.Message) (*agent.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, assistantCall{UserID: userID, Input: input, HistoryLen: len(history)})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Response{FinalText: f.response, Turns: 1}, nil
}

func (f *fakeAssistant) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		const size = 5
		runes := []rune(text)
		for i := 0; i < len(runes); i += size {
			end := min(i+size, len(runes))
			if !yield(string(runes[i:end])) {
				return
			}
		}
	}
}

func (f *fakeAssistant) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAssistant) lastCall(t *testing.T) assistantCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("assistant was never called")
	}
	return f.calls[len(f.calls)-1]
}

type testServer struct {
	server    *Server
	assistant *fakeAssistant
	sessions  *session.MemoryStore
	carts     *cart.MemoryStore
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	assistant := &fakeAssistant{response: "Here is what I found."}
	sessions := session.NewMemoryStore()
	carts := cart.NewMemoryStore()

	cfg := Config{
		Logger:         log.NewNop(),
		Assistant:      assistant,
		Sessions:       sessions,
		Carts:          carts,
		CORSOrigins:    []string{"http://localhost:5173"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testServer{server: s, assistant: assistant, sessions: sessions, carts: carts}
}

func (ts *testServer) do(t *testing.T, method, path, user string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNewServer_MissingDependencies(t *testing.T) {
	if _, err := NewServer(Config{Logger: log.NewNop()}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty", got)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.RateLimitRPS = 1
		cfg.RateLimitBurst = 1
	})

	if rec := ts.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := ts.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Code != "rate_limited" {
		t.Errorf("code = %q", body.Code)
	}
}
