package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

func init() {
	Register(FormatGemini, FormatAnthropic, TranslatorConfig{
		ResponseTransform: GeminiToAnthropicResponse,
	})
}

// GeminiToAnthropicResponse converts a non-streaming Gemini response into a
// Claude Messages response body. Content-block and stop-reason mapping
// applied directly against the Gemini candidate shape rather than routing
// through an intermediate OpenAI response.
func GeminiToAnthropicResponse(_ context.Context, model string, responseBody []byte) ([]byte, error) {
	result := gjson.ParseBytes(responseBody)
	if errMsg := result.Get("error"); errMsg.Exists() {
		return responseBody, nil
	}

	candidates := result.Get("candidates").Array()
	content := []map[string]interface{}{}
	stopReason := "end_turn"

	if len(candidates) > 0 {
		cand := candidates[0]
		for _, part := range cand.Get("content.parts").Array() {
			if thought := part.Get("thought"); thought.Exists() {
				content = append(content, map[string]interface{}{
					"type": "thinking", "thinking": thought.String(),
				})
				continue
			}
			if text := part.Get("text"); text.Exists() {
				visible, thinking := splitThinkingText(text.String())
				if thinking != "" {
					content = append(content, map[string]interface{}{"type": "thinking", "thinking": thinking})
				}
				if visible != "" {
					content = append(content, map[string]interface{}{"type": "text", "text": visible})
				}
				continue
			}
			if fc := part.Get("functionCall"); fc.Exists() {
				var input json.RawMessage
				if args := fc.Get("args"); args.Exists() {
					input = json.RawMessage(args.Raw)
				} else {
					input = json.RawMessage("{}")
				}
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    fc.Get("id").String(),
					"name":  fc.Get("name").String(),
					"input": input,
				})
			}
		}

		switch fr := cand.Get("finishReason").String(); fr {
		case "MAX_TOKENS":
			stopReason = "max_tokens"
		case "SAFETY", "RECITATION":
			stopReason = "stop_sequence"
		}
		hasToolUse := false
		for _, c := range content {
			if c["type"] == "tool_use" {
				hasToolUse = true
				break
			}
		}
		if hasToolUse {
			stopReason = "tool_use"
		}
	}

	usage := result.Get("usageMetadata")
	out := map[string]interface{}{
		"id":          fmt.Sprintf("msg_%d", time.Now().UnixNano()),
		"type":        "message",
		"role":        "assistant",
		"model":       model,
		"content":     content,
		"stop_reason": stopReason,
		"usage": map[string]interface{}{
			"input_tokens":  usage.Get("promptTokenCount").Int(),
			"output_tokens": usage.Get("candidatesTokenCount").Int(),
		},
	}
	return json.Marshal(out)
}

// splitThinkingText mirrors the streaming engine's <思考> marker extraction
// for the single-shot non-stream response path.
func splitThinkingText(text string) (visible string, thinking string) {
	const open, close = "<思考>", "</思考>"
	var visibleB, thinkingB strings.Builder
	rest := text
	for {
		i := strings.Index(rest, open)
		if i == -1 {
			visibleB.WriteString(rest)
			break
		}
		visibleB.WriteString(rest[:i])
		rest = rest[i+len(open):]
		j := strings.Index(rest, close)
		if j == -1 {
			thinkingB.WriteString(rest)
			rest = ""
			break
		}
		thinkingB.WriteString(rest[:j])
		rest = rest[j+len(close):]
	}
	return visibleB.String(), thinkingB.String()
}
