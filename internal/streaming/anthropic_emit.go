package streaming

import (
	"encoding/json"
	"net/http"
)

// AnthropicEmitter re-emits classified events as a Claude-native event
// sequence: message_start, per-content-block
// content_block_start/delta/stop, message_delta, message_stop. Grounded on
// the one-api ConvertOpenAIStreamToClaudeSSE content-block indexing and
// input_json_delta accumulation for tool calls.
type AnthropicEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	model   string

	started    bool
	nextIndex  int
	thinkIndex int
	textIndex  int
	toolIndex  map[string]int
}

func NewAnthropicEmitter(w http.ResponseWriter, flusher http.Flusher, model string) *AnthropicEmitter {
	return &AnthropicEmitter{
		w: w, flusher: flusher, model: model,
		thinkIndex: -1, textIndex: -1,
		toolIndex: map[string]int{},
	}
}

func (e *AnthropicEmitter) send(payload map[string]interface{}) {
	if !e.started {
		e.sendRaw(map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"type": "message", "role": "assistant", "model": e.model, "content": []interface{}{},
			},
		})
		e.started = true
	}
	e.sendRaw(payload)
}

func (e *AnthropicEmitter) sendRaw(payload map[string]interface{}) {
	b, _ := json.Marshal(payload)
	e.w.Write([]byte("data: "))
	e.w.Write(b)
	e.w.Write([]byte("\n\n"))
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

func (e *AnthropicEmitter) Thinking(delta string) {
	if e.thinkIndex == -1 {
		e.thinkIndex = e.nextIndex
		e.nextIndex++
		e.send(map[string]interface{}{
			"type": "content_block_start", "index": e.thinkIndex,
			"content_block": map[string]interface{}{"type": "thinking", "thinking": ""},
		})
	}
	e.send(map[string]interface{}{
		"type": "content_block_delta", "index": e.thinkIndex,
		"delta": map[string]interface{}{"type": "thinking_delta", "thinking": delta},
	})
}

func (e *AnthropicEmitter) Text(delta string) {
	if e.textIndex == -1 {
		e.textIndex = e.nextIndex
		e.nextIndex++
		e.send(map[string]interface{}{
			"type": "content_block_start", "index": e.textIndex,
			"content_block": map[string]interface{}{"type": "text", "text": ""},
		})
	}
	e.send(map[string]interface{}{
		"type": "content_block_delta", "index": e.textIndex,
		"delta": map[string]interface{}{"type": "text_delta", "text": delta},
	})
}

func (e *AnthropicEmitter) ToolCall(id, name, argsJSON string) {
	key := id
	if key == "" {
		key = name
	}
	idx, ok := e.toolIndex[key]
	if !ok {
		idx = e.nextIndex
		e.nextIndex++
		e.toolIndex[key] = idx
		e.send(map[string]interface{}{
			"type": "content_block_start", "index": idx,
			"content_block": map[string]interface{}{"type": "tool_use", "id": id, "name": name, "input": map[string]interface{}{}},
		})
	}
	if argsJSON != "" {
		e.send(map[string]interface{}{
			"type": "content_block_delta", "index": idx,
			"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": argsJSON},
		})
	}
}

func (e *AnthropicEmitter) Image(url string) {
	e.Text("![image](" + url + ")")
}

func (e *AnthropicEmitter) Finish(hadToolCall bool, usage UsageTotals) {
	if e.thinkIndex >= 0 {
		e.send(map[string]interface{}{"type": "content_block_stop", "index": e.thinkIndex})
	}
	if e.textIndex >= 0 {
		e.send(map[string]interface{}{"type": "content_block_stop", "index": e.textIndex})
	}
	for _, idx := range e.toolIndex {
		e.send(map[string]interface{}{"type": "content_block_stop", "index": idx})
	}

	stopReason := "end_turn"
	if hadToolCall {
		stopReason = "tool_use"
	}
	e.send(map[string]interface{}{
		"type": "message_delta",
		"delta": map[string]interface{}{"stop_reason": stopReason},
		"usage": map[string]interface{}{
			"input_tokens":  usage.PromptTokens,
			"output_tokens": usage.CompletionTokens,
		},
	})
	e.send(map[string]interface{}{"type": "message_stop"})
}

// Error surfaces a mid-stream upstream error as a text delta on a freshly
// opened (or already-open) text block, then terminates normally — Claude
// clients have no distinct mid-stream error event type to target.
func (e *AnthropicEmitter) Error(message string, headersSent bool) {
	e.Text("错误: " + message)
	e.Finish(false, UsageTotals{})
}
