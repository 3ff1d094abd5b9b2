package translator

import (
	"encoding/json"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// gjsonGetMessages returns the request's "messages" array for callers that
// only need a quick scan (e.g. tool-call-history detection).
func gjsonGetMessages(rawJSON []byte) []gjson.Result {
	return gjson.GetBytes(rawJSON, "messages").Array()
}

func translateMessages(rawJSON []byte, model string, sigs *SignatureStore) ([]interface{}, []interface{}) {
	gemini3 := sigs != nil && strings.Contains(model, "gemini-3")
	messages := gjson.GetBytes(rawJSON, "messages")
	var contents []interface{}
	var systemInstructions []interface{}

	for _, msg := range messages.Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")

		switch role {
		case "system":
			if content.IsArray() {
				for _, part := range content.Array() {
					systemInstructions = append(systemInstructions, convertContentPart(part))
				}
			} else {
				systemInstructions = append(systemInstructions, map[string]interface{}{
					"text": sanitizeText(content.String()),
				})
			}

		case "user":
			geminiMsg := map[string]interface{}{
				"role":  "user",
				"parts": []interface{}{},
			}
			if content.IsArray() {
				var parts []interface{}
				for _, part := range content.Array() {
					parts = append(parts, convertContentPart(part))
				}
				geminiMsg["parts"] = parts
			} else {
				geminiMsg["parts"] = []interface{}{
					map[string]interface{}{"text": sanitizeText(content.String())},
				}
			}
			contents = append(contents, geminiMsg)

		case "assistant":
			geminiMsg := map[string]interface{}{
				"role":  "model",
				"parts": []interface{}{},
			}

			if toolCalls := msg.Get("tool_calls"); toolCalls.Exists() && toolCalls.IsArray() {
				var parts []interface{}
				for _, tc := range toolCalls.Array() {
					if tc.Get("type").String() == "function" {
						fnName := tc.Get("function.name").String()
						fnArgs := tc.Get("function.arguments").String()
						var argsObj interface{}
						if err := json.Unmarshal([]byte(fnArgs), &argsObj); err == nil {
							fnCall := map[string]interface{}{
								"name": fnName,
								"args": argsObj,
							}
							if id := tc.Get("id").String(); id != "" {
								fnCall["id"] = id
							}
							part := map[string]interface{}{"functionCall": fnCall}
							if gemini3 {
								if sig, ok := sigs.LookupToolCall(tc.Get("id").String()); ok {
									part["thoughtSignature"] = sig
								}
							}
							parts = append(parts, part)
						}
					}
				}

				if content.Exists() && content.String() != "" {
					if textPart, ok := assistantTextPart(content.String(), gemini3, sigs); ok {
						parts = append([]interface{}{textPart}, parts...)
					}
				}

				geminiMsg["parts"] = parts
			} else if content.Exists() {
				if content.IsArray() {
					var parts []interface{}
					for _, part := range content.Array() {
						parts = append(parts, convertContentPart(part))
					}
					geminiMsg["parts"] = parts
				} else if content.String() != "" {
					if textPart, ok := assistantTextPart(content.String(), gemini3, sigs); ok {
						geminiMsg["parts"] = []interface{}{textPart}
					}
				}
			}

			// appendFunctionCallsToPriorModelTurn: if the previous emitted
			// turn was already a model turn holding only tool-calls and
			// this assistant message carries no text, merge into it rather
			// than starting a new turn.
			if newParts, ok := geminiMsg["parts"].([]interface{}); ok && len(newParts) > 0 {
				if (!content.Exists() || content.String() == "") && len(contents) > 0 {
					if prior, ok := contents[len(contents)-1].(map[string]interface{}); ok {
						if prior["role"] == "model" && allFunctionCalls(prior["parts"]) && allFunctionCalls(newParts) {
							prior["parts"] = append(prior["parts"].([]interface{}), newParts...)
							continue
						}
					}
				}
				contents = append(contents, geminiMsg)
			}

		case "tool":
			toolCallID := msg.Get("tool_call_id").String()
			name := msg.Get("name").String()
			if name == "" && toolCallID != "" {
				name = lookupFunctionNameByID(contents, toolCallID)
			}

			var responseContent interface{}
			contentStr := sanitizeText(content.String())
			if err := json.Unmarshal([]byte(contentStr), &responseContent); err != nil {
				responseContent = map[string]interface{}{
					"result": contentStr,
				}
			}

			funcResp := map[string]interface{}{
				"functionResponse": map[string]interface{}{
					"name":     name,
					"response": responseContent,
				},
			}

			if toolCallID != "" {
				funcResp["functionResponse"].(map[string]interface{})["id"] = toolCallID
			}

			// Consecutive tool responses merge into the prior turn if it is
			// already a user turn holding function responses.
			if len(contents) > 0 {
				if prior, ok := contents[len(contents)-1].(map[string]interface{}); ok {
					if prior["role"] == "user" && allFunctionResponses(prior["parts"]) {
						prior["parts"] = append(prior["parts"].([]interface{}), funcResp)
						continue
					}
				}
			}
			contents = append(contents, map[string]interface{}{
				"role":  "user",
				"parts": []interface{}{funcResp},
			})
		}
	}

	contents = sanitizeMessages(contents)
	ensureDoneInstruction(&systemInstructions)
	systemInstructions = sanitizeParts(systemInstructions)
	return contents, systemInstructions
}

// convertContentPart converts an OpenAI content part to Gemini format (enhanced).
func convertContentPart(part gjson.Result) interface{} {
	partType := part.Get("type").String()

	switch partType {
	case "text":
		return map[string]interface{}{
			"text": sanitizeText(part.Get("text").String()),
		}

	case "image_url":
		imageURL := part.Get("image_url.url").String()
		detail := part.Get("image_url.detail").String()

		if strings.HasPrefix(imageURL, "data:") {
			parts := strings.SplitN(imageURL, ",", 2)
			if len(parts) == 2 {
				mimeType := detectImageMIME(parts[0])
				inlineData := map[string]interface{}{
					"mimeType": mimeType,
					"data":     parts[1],
				}
				return map[string]interface{}{"inlineData": inlineData}
			}
		}

		fileData := map[string]interface{}{
			"fileUri": imageURL,
		}
		if detail != "" {
			fileData["detail"] = detail
		}
		return map[string]interface{}{"fileData": fileData}

	case "audio":
		if audioData := part.Get("audio"); audioData.Exists() {
			if audioData.Get("data").Exists() {
				return map[string]interface{}{
					"inlineData": map[string]interface{}{
						"mimeType": part.Get("audio.format").String(),
						"data":     part.Get("audio.data").String(),
					},
				}
			}
		}

	case "video":
		if videoURL := part.Get("video.url"); videoURL.Exists() {
			return map[string]interface{}{
				"fileData": map[string]interface{}{
					"fileUri": videoURL.String(),
				},
			}
		}
	}

	var result interface{}
	if err := json.Unmarshal([]byte(part.Raw), &result); err == nil {
		return result
	}

	return map[string]interface{}{
		"text": sanitizeText(part.Raw),
	}
}

// assistantTextPart builds the text part for an assistant turn. For
// Gemini-3-class models, a missing cached thoughtSignature causes the text
// to be dropped entirely rather than sent malformed.
func assistantTextPart(text string, gemini3 bool, sigs *SignatureStore) (map[string]interface{}, bool) {
	if !gemini3 {
		return map[string]interface{}{"text": sanitizeText(text)}, true
	}
	sig, ok := sigs.LookupText(text)
	if !ok {
		log.WithField("model_family", "gemini-3").Warn("dropping assistant text with no cached thought signature")
		return nil, false
	}
	return map[string]interface{}{"text": sanitizeText(text), "thoughtSignature": sig}, true
}

// lookupFunctionNameByID scans prior model turns for a functionCall whose id
// matches toolCallID, used when a tool-result message omits "name".
func lookupFunctionNameByID(contents []interface{}, toolCallID string) string {
	for i := len(contents) - 1; i >= 0; i-- {
		msg, ok := contents[i].(map[string]interface{})
		if !ok || msg["role"] != "model" {
			continue
		}
		parts, ok := msg["parts"].([]interface{})
		if !ok {
			continue
		}
		for _, p := range parts {
			part, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			fc, ok := part["functionCall"].(map[string]interface{})
			if !ok {
				continue
			}
			if id, _ := fc["id"].(string); id == toolCallID {
				if name, _ := fc["name"].(string); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

func allFunctionCalls(parts interface{}) bool {
	list, ok := parts.([]interface{})
	if !ok || len(list) == 0 {
		return false
	}
	for _, p := range list {
		m, ok := p.(map[string]interface{})
		if !ok {
			return false
		}
		if _, ok := m["functionCall"]; !ok {
			return false
		}
	}
	return true
}

func allFunctionResponses(parts interface{}) bool {
	list, ok := parts.([]interface{})
	if !ok || len(list) == 0 {
		return false
	}
	for _, p := range list {
		m, ok := p.(map[string]interface{})
		if !ok {
			return false
		}
		if _, ok := m["functionResponse"]; !ok {
			return false
		}
	}
	return true
}

func mergeConsecutiveMessages(contents []interface{}) []interface{} {
	if len(contents) <= 1 {
		return contents
	}

	merged := make([]interface{}, 0, len(contents))
	var current map[string]interface{}

	for i, item := range contents {
		msg, ok := item.(map[string]interface{})
		if !ok {
			merged = append(merged, item)
			continue
		}

		role, hasRole := msg["role"].(string)
		if !hasRole {
			merged = append(merged, msg)
			continue
		}

		if current == nil || current["role"].(string) != role {
			if current != nil {
				merged = append(merged, current)
			}
			current = msg
			continue
		}

		currentParts, hasParts := current["parts"].([]interface{})
		msgParts, hasMsgParts := msg["parts"].([]interface{})

		if hasParts && hasMsgParts {
			current["parts"] = append(currentParts, msgParts...)
		} else if hasMsgParts {
			current["parts"] = msgParts
		}

		if i == len(contents)-1 {
			merged = append(merged, current)
		}
	}

	if current != nil {
		merged = append(merged, current)
	}

	return merged
}

func detectImageMIME(prefix string) string {
	switch {
	case strings.Contains(prefix, "image/png"):
		return "image/png"
	case strings.Contains(prefix, "image/webp"):
		return "image/webp"
	case strings.Contains(prefix, "image/gif"):
		return "image/gif"
	case strings.Contains(prefix, "image/heic"):
		return "image/heic"
	case strings.Contains(prefix, "image/heif"):
		return "image/heif"
	default:
		return "image/jpeg"
	}
}
