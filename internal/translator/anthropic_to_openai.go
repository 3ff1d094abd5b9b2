package translator

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// mapClaudeToOpenAI performs the Anthropic → OpenAI dialect hop:
// FromAnthropicMessages funnels every request through this before handing
// off to FromOpenAIChat, so the OpenAI → Gemini pipeline is exercised only
// once. Grounded on the one-api ConvertClaudeRequest mapping, re-expressed
// in the gjson/sjson idiom this codebase already uses for untyped JSON.
func mapClaudeToOpenAI(rawJSON []byte) []byte {
	out := `{}`
	out, _ = sjson.Set(out, "model", gjson.GetBytes(rawJSON, "model").String())
	out, _ = sjson.Set(out, "stream", gjson.GetBytes(rawJSON, "stream").Bool())

	if maxTokens := gjson.GetBytes(rawJSON, "max_tokens"); maxTokens.Exists() {
		out, _ = sjson.Set(out, "max_completion_tokens", maxTokens.Int())
	}
	if temp := gjson.GetBytes(rawJSON, "temperature"); temp.Exists() {
		out, _ = sjson.Set(out, "temperature", temp.Value())
	}
	if topP := gjson.GetBytes(rawJSON, "top_p"); topP.Exists() {
		out, _ = sjson.Set(out, "top_p", topP.Value())
	}
	if stop := gjson.GetBytes(rawJSON, "stop_sequences"); stop.Exists() {
		stopJSON, _ := json.Marshal(stringArray(stop))
		out, _ = sjson.SetRaw(out, "stop", string(stopJSON))
	}

	var messages []interface{}

	if system := gjson.GetBytes(rawJSON, "system"); system.Exists() {
		if system.IsArray() {
			var parts []string
			for _, block := range system.Array() {
				if block.Get("type").String() == "text" {
					if text := block.Get("text").String(); text != "" {
						parts = append(parts, text)
					}
				}
			}
			if len(parts) > 0 {
				messages = append(messages, map[string]interface{}{"role": "system", "content": strings.Join(parts, "\n")})
			}
		} else if system.String() != "" {
			messages = append(messages, map[string]interface{}{"role": "system", "content": system.String()})
		}
	}

	for _, msg := range gjson.GetBytes(rawJSON, "messages").Array() {
		messages = append(messages, claudeMessageToOpenAI(msg)...)
	}
	messagesJSON, _ := json.Marshal(messages)
	out, _ = sjson.SetRaw(out, "messages", string(messagesJSON))

	if tools := gjson.GetBytes(rawJSON, "tools"); tools.Exists() && tools.IsArray() {
		var openaiTools []interface{}
		for _, t := range tools.Array() {
			var params interface{}
			if schema := t.Get("input_schema"); schema.Exists() {
				json.Unmarshal([]byte(schema.Raw), &params)
			}
			openaiTools = append(openaiTools, map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        t.Get("name").String(),
					"description": t.Get("description").String(),
					"parameters":  params,
				},
			})
		}
		toolsJSON, _ := json.Marshal(openaiTools)
		out, _ = sjson.SetRaw(out, "tools", string(toolsJSON))
	}

	if toolChoice := gjson.GetBytes(rawJSON, "tool_choice"); toolChoice.Exists() {
		out, _ = sjson.SetRaw(out, "tool_choice", normalizeClaudeToolChoiceJSON(toolChoice))
	}

	return []byte(out)
}

// claudeMessageToOpenAI converts one Claude message into zero-or-more
// OpenAI-shape messages. A message mixing tool_use and text expands to a
// single assistant message with both content and tool_calls; tool_result
// blocks expand into one "tool" message per block, since OpenAI has no
// multi-result single-message shape.
func claudeMessageToOpenAI(msg gjson.Result) []interface{} {
	role := msg.Get("role").String()
	content := msg.Get("content")

	if !content.IsArray() {
		return []interface{}{map[string]interface{}{"role": role, "content": content.String()}}
	}

	var textParts []string
	var toolCalls []interface{}
	var toolResults []interface{}

	for _, block := range content.Array() {
		switch block.Get("type").String() {
		case "text":
			if t := block.Get("text").String(); t != "" {
				textParts = append(textParts, t)
			}
		case "image":
			// images inside an assistant/user turn are passed through as
			// OpenAI image_url parts further down the pipeline; text-only
			// collection here keeps content a plain string for simplicity
			// when no tool_use/tool_result is present.
		case "tool_use":
			argsStr := "{}"
			if input := block.Get("input"); input.Exists() {
				argsStr = input.Raw
			}
			toolCalls = append(toolCalls, map[string]interface{}{
				"id":   block.Get("id").String(),
				"type": "function",
				"function": map[string]interface{}{
					"name":      block.Get("name").String(),
					"arguments": argsStr,
				},
			})
		case "tool_result":
			toolResults = append(toolResults, map[string]interface{}{
				"role":         "tool",
				"tool_call_id": block.Get("tool_use_id").String(),
				"content":      claudeToolResultText(block.Get("content")),
			})
		}
	}

	if len(toolResults) > 0 {
		return toolResults
	}

	out := map[string]interface{}{"role": role, "content": strings.Join(textParts, "\n")}
	if len(toolCalls) > 0 {
		out["tool_calls"] = toolCalls
	}
	return []interface{}{out}
}

// claudeToolResultText extracts tool_result content per the documented
// fallback chain: .text on object, first text element on array,
// JSON-stringify as last resort.
func claudeToolResultText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	if content.IsArray() {
		for _, item := range content.Array() {
			if item.Get("type").String() == "text" {
				return item.Get("text").String()
			}
		}
		return content.Raw
	}
	if text := content.Get("text"); text.Exists() {
		return text.String()
	}
	return content.Raw
}

func stringArray(v gjson.Result) []string {
	var out []string
	if v.IsArray() {
		for _, s := range v.Array() {
			out = append(out, s.String())
		}
	} else if v.String() != "" {
		out = append(out, v.String())
	}
	return out
}

// normalizeClaudeToolChoiceJSON adapts Claude's {type:"tool", name:"..."}
// shape to OpenAI's {type:"function", function:{name:"..."}}.
func normalizeClaudeToolChoiceJSON(choice gjson.Result) string {
	t := choice.Get("type").String()
	switch t {
	case "auto", "any":
		return `"auto"`
	case "tool":
		name := choice.Get("name").String()
		obj := map[string]interface{}{
			"type":     "function",
			"function": map[string]interface{}{"name": name},
		}
		b, _ := json.Marshal(obj)
		return string(b)
	default:
		return choice.Raw
	}
}
