package orchestrator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/credential"
	"antigravity-gateway/internal/translator"
	"antigravity-gateway/internal/usage"
	"github.com/gin-gonic/gin"
)

type fakeUsageCounter struct{}

func (fakeUsageCounter) CountInWindow(string, time.Duration) (int64, time.Time) {
	return 0, time.Time{}
}

type fakeRefresher struct{}

func (fakeRefresher) Refresh(_ context.Context, cred *credential.Credential) (*credential.Credential, error) {
	return cred, nil
}

func noopSaveImage(data []byte, mime string) (string, error) { return "https://img.example/1", nil }

func newTestPool(t *testing.T) *credential.Pool {
	t.Helper()
	store := credential.NewFileStore(t.TempDir() + "/creds.json")
	now := time.Now()
	list := []*credential.Credential{{
		RefreshToken: "rt-1", AccessToken: "at-1", ProjectID: "proj-1",
		Enabled: true, IssuedAt: now.UnixMilli(), ExpiresIn: 3600,
	}}
	if err := store.Save(context.Background(), list); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	pool := credential.NewPool(store, fakeUsageCounter{}, fakeRefresher{})
	if err := pool.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize pool: %v", err)
	}
	return pool
}

func newTestOrchestrator(t *testing.T, codeAssistURL string) (*Orchestrator, *usage.Store) {
	t.Helper()
	cfg := &config.Config{CodeAssist: codeAssistURL, RetryMaxAttempts: 1}
	pool := newTestPool(t)
	adapter := translator.NewAdapter()
	usageStore, err := usage.NewStore(context.Background(), usage.Options{})
	if err != nil {
		t.Fatalf("new usage store: %v", err)
	}
	return New(cfg, pool, adapter, usageStore, noopSaveImage), usageStore
}

func TestHandleNonStreamOpenAIConvertsResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"hello"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":2,"totalTokenCount":3}}`)
	}))
	defer upstream.Close()

	orch, usageStore := newTestOrchestrator(t, upstream.URL)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`))

	orch.Handle(c, Request{
		Dialect: DialectOpenAI,
		Model:   "gemini-2.5-pro",
		Body:    []byte(`{"model":"gemini-2.5-pro","messages":[{"role":"user","content":"hi"}]}`),
		Stream:  false,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"content":"hello"`) {
		t.Fatalf("expected converted OpenAI content, got %s", rec.Body.String())
	}

	logs := usageStore.RecentLogs(10)
	if len(logs) != 1 || !logs[0].Success {
		t.Fatalf("expected one successful log entry, got %+v", logs)
	}
	if logs[0].ProjectID != "proj-1" {
		t.Fatalf("expected log entry to record the acquired credential's project id, got %q", logs[0].ProjectID)
	}
}

func TestHandleStreamAnthropicEmitsEventSequence(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"hi\"}]}}]}\n\n")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[]},\"finishReason\":\"STOP\"}],\"usageMetadata\":{\"promptTokenCount\":1,\"candidatesTokenCount\":1,\"totalTokenCount\":2}}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	orch, usageStore := newTestOrchestrator(t, upstream.URL)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{}`))

	orch.Handle(c, Request{
		Dialect: DialectAnthropic,
		Model:   "gemini-3-pro",
		Body:    []byte(`{"model":"gemini-3-pro","messages":[{"role":"user","content":[{"type":"text","text":"hi"}]}]}`),
		Stream:  true,
	})

	body := rec.Body.String()
	for _, want := range []string{`"type":"message_start"`, `"type":"message_stop"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in anthropic stream, got %s", want, body)
		}
	}

	logs := usageStore.RecentLogs(10)
	if len(logs) != 1 || !logs[0].Success {
		t.Fatalf("expected one successful log entry, got %+v", logs)
	}
}

func TestHandleRejectsGeminiStreaming(t *testing.T) {
	orch, usageStore := newTestOrchestrator(t, "http://unused.invalid")

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1beta/models/gemini-2.5-pro:generateContent", strings.NewReader(`{}`))

	orch.Handle(c, Request{Dialect: DialectGemini, Model: "gemini-2.5-pro", Body: []byte(`{}`), Stream: true})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a streaming gemini request, got %d body=%s", rec.Code, rec.Body.String())
	}
	logs := usageStore.RecentLogs(10)
	if len(logs) != 1 || logs[0].Success {
		t.Fatalf("expected one failed log entry, got %+v", logs)
	}
}

func TestHandleSurfacesUpstreamErrorWithoutCrashing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"message":"revoked"}}`)
	}))
	defer upstream.Close()

	orch, usageStore := newTestOrchestrator(t, upstream.URL)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`))

	orch.Handle(c, Request{
		Dialect: DialectOpenAI,
		Model:   "gemini-2.5-pro",
		Body:    []byte(`{"model":"gemini-2.5-pro","messages":[{"role":"user","content":"hi"}]}`),
		Stream:  false,
	})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected upstream 403 to propagate, got %d body=%s", rec.Code, rec.Body.String())
	}
	logs := usageStore.RecentLogs(10)
	if len(logs) != 1 || logs[0].Success {
		t.Fatalf("expected one failed log entry, got %+v", logs)
	}
}
