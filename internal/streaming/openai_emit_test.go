package streaming

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIEmitterChunkShape(t *testing.T) {
	rec := httptest.NewRecorder()
	e := NewOpenAIEmitter(rec, nil, "gpt-test")

	e.Text("hi")
	e.ToolCall("call_1", "search", `{"q":"go"}`)
	e.Finish(true, UsageTotals{TotalTokens: 3})

	body := rec.Body.String()
	if !strings.Contains(body, `"content":"hi"`) {
		t.Fatalf("expected content delta in body, got %s", body)
	}
	if !strings.Contains(body, `"finish_reason":"tool_calls"`) {
		t.Fatalf("expected tool_calls finish reason, got %s", body)
	}
	if !strings.HasSuffix(strings.TrimRight(body, "\n"), "data: [DONE]") {
		t.Fatalf("expected stream to terminate with [DONE], got %s", body)
	}
}

func TestOpenAIEmitterErrorPrefixesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	e := NewOpenAIEmitter(rec, nil, "gpt-test")
	e.Error("upstream exploded", true)

	body := rec.Body.String()
	if !strings.Contains(body, "错误: upstream exploded") {
		t.Fatalf("expected error-prefixed content chunk, got %s", body)
	}
	if !strings.Contains(body, `"finish_reason":"stop"`) {
		t.Fatalf("expected normal stop termination after error, got %s", body)
	}
}
