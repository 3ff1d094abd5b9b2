package usage

import "time"

// RequestDetail sanitizes and snapshots the request/response bodies a
// LogEntry carries.
type RequestDetail struct {
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// StreamSummary is the derived summary of a streaming response, computed by
// concatenating content fields and keeping the last tool_calls event
//.
type StreamSummary struct {
	Text      string `json:"text,omitempty"`
	ToolCalls any    `json:"tool_calls,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
}

// ResponseDetail snapshots a response: Body for non-stream, Events plus a
// derived Summary for stream.
type ResponseDetail struct {
	Body    any            `json:"body,omitempty"`
	Events  []any          `json:"events,omitempty"`
	Summary *StreamSummary `json:"summary,omitempty"`
}

// Detail is the optional sub-record a LogEntry carries; it may be trimmed
// independently of the entry index.
type Detail struct {
	Request  *RequestDetail  `json:"request,omitempty"`
	Response *ResponseDetail `json:"response,omitempty"`
}

// LogEntry is one request's record in the Usage & Observability Store.
type LogEntry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Model      string    `json:"model"`
	ProjectID  string    `json:"project_id"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Detail     *Detail   `json:"detail,omitempty"`
}

// WithoutDetail returns a shallow copy with Detail stripped, used by
// RecentLogs which must not leak detail bodies.
func (e LogEntry) WithoutDetail() LogEntry {
	e.Detail = nil
	return e
}

// ProjectSummary is one row of UsageSummary's per-project totals.
type ProjectSummary struct {
	ProjectID  string    `json:"project_id"`
	Total      int64     `json:"total"`
	Success    int64     `json:"success"`
	Failed     int64     `json:"failed"`
	LastUsedAt time.Time `json:"last_used_at"`
	Models     []string  `json:"models"`
}

// WindowCount is one row of UsageWithinWindow's per-project counts.
type WindowCount struct {
	ProjectID string `json:"project_id"`
	Total     int64  `json:"total"`
	Success   int64  `json:"success"`
	Failed    int64  `json:"failed"`
}

var redactedHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
}

// SanitizeHeaders redacts authorization/cookie headers case-insensitively
// before a detail snapshot is stored.
func SanitizeHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		lower := toLower(k)
		if redactedHeaders[lower] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// SummarizeStream folds a raw stream-event list into the derived
// {text, tool_calls, thinking} summary.
func SummarizeStream(events []map[string]any) *StreamSummary {
	summary := &StreamSummary{}
	for _, ev := range events {
		if text, ok := ev["content"].(string); ok {
			summary.Text += text
		}
		if thinking, ok := ev["reasoning_content"].(string); ok {
			summary.Thinking += thinking
		}
		if tc, ok := ev["tool_calls"]; ok {
			summary.ToolCalls = tc
		}
	}
	return summary
}
