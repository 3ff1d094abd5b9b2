package streaming

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

var openaiChunkSeq uint64

func nextOpenAIChunkID() string {
	n := atomic.AddUint64(&openaiChunkSeq, 1)
	return "chatcmpl-" + strconv.FormatInt(time.Now().Unix(), 10) + "-" + strconv.FormatUint(n, 10)
}

// OpenAIEmitter re-emits classified events as chat.completion.chunk SSE
// frames: content/reasoning_content/tool_calls
// deltas, a terminal empty-delta chunk carrying finish_reason, then
// data: [DONE].
type OpenAIEmitter struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	model    string
	toolSeen map[string]int
	nextTool int
}

func NewOpenAIEmitter(w http.ResponseWriter, flusher http.Flusher, model string) *OpenAIEmitter {
	return &OpenAIEmitter{w: w, flusher: flusher, model: model, toolSeen: map[string]int{}}
}

func (e *OpenAIEmitter) write(delta map[string]interface{}, finishReason interface{}) {
	chunk := map[string]interface{}{
		"id":      nextOpenAIChunkID(),
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   e.model,
		"choices": []interface{}{
			map[string]interface{}{"index": 0, "delta": delta, "finish_reason": finishReason},
		},
	}
	b, _ := json.Marshal(chunk)
	e.w.Write([]byte("data: "))
	e.w.Write(b)
	e.w.Write([]byte("\n\n"))
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

func (e *OpenAIEmitter) Text(delta string) {
	e.write(map[string]interface{}{"content": delta}, nil)
}

func (e *OpenAIEmitter) Thinking(delta string) {
	e.write(map[string]interface{}{"reasoning_content": delta}, nil)
}

func (e *OpenAIEmitter) ToolCall(id, name, argsJSON string) {
	key := id
	if key == "" {
		key = name
	}
	idx, ok := e.toolSeen[key]
	if !ok {
		idx = e.nextTool
		e.toolSeen[key] = idx
		e.nextTool++
	}
	callID := id
	if callID == "" {
		callID = "call_" + strconv.Itoa(idx)
	}
	e.write(map[string]interface{}{
		"tool_calls": []interface{}{
			map[string]interface{}{
				"index": idx,
				"id":    callID,
				"type":  "function",
				"function": map[string]interface{}{
					"name":      name,
					"arguments": argsJSON,
				},
			},
		},
	}, nil)
}

func (e *OpenAIEmitter) Image(url string) {
	e.write(map[string]interface{}{"content": "![image](" + url + ")"}, nil)
}

func (e *OpenAIEmitter) Finish(hadToolCall bool, usage UsageTotals) {
	reason := "stop"
	if hadToolCall {
		reason = "tool_calls"
	}
	e.write(map[string]interface{}{}, reason)
	e.w.Write([]byte("data: [DONE]\n\n"))
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

// Error re-emits a mid-stream upstream error as a final content chunk
// prefixed with "错误: " followed by a normal stop termination. headersSent is accepted for interface symmetry with other
// emitters; OpenAI's wire format has no distinct pre-header error shape at
// this layer, so the behavior is identical either way.
func (e *OpenAIEmitter) Error(message string, headersSent bool) {
	e.write(map[string]interface{}{"content": "错误: " + message}, nil)
	e.write(map[string]interface{}{}, "stop")
	e.w.Write([]byte("data: [DONE]\n\n"))
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
