// Package streaming consumes the upstream SSE event stream and re-emits it
// in the requesting client's dialect: OpenAI chat.completion.chunk,
// an Anthropic event sequence, or a buffered Gemini JSON body.
package streaming

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// thinkingMarker matches the upstream's inline Chinese thinking delimiters;
// text inside is surfaced to the client as reasoning rather than content.
var thinkingMarker = regexp.MustCompile(`(?s)<思考>(.*?)</思考>`)

// splitThinkingMarkers strips <思考>...</思考> spans out of text, returning
// the remaining visible text and the concatenated thinking content.
func splitThinkingMarkers(text string) (visible string, thinking string) {
	matches := thinkingMarker.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, ""
	}
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(m[1])
	}
	return thinkingMarker.ReplaceAllString(text, ""), sb.String()
}

// ToolCallPart is one functionCall extracted from a candidate part, along
// with whatever thoughtSignature the upstream attached to it.
type ToolCallPart struct {
	ID              string
	Name            string
	ArgsJSON        string
	ThoughtSignature string
}

// ImagePart is one inlineData image extracted from a candidate part.
type ImagePart struct {
	MimeType string
	DataB64  string
}

// rawEvent is the per-part decomposition of one upstream SSE payload.
// Unlike a lossy concatenation, Text/Thinking retain their own
// thoughtSignature so the Adapter's thought-signature memory can be populated precisely at stream end.
type rawEvent struct {
	Text             string
	TextSignature    string
	Thinking         string
	ToolCalls        []ToolCallPart
	Images           []ImagePart
	FinishReason     string
	PromptTokens     int64
	CandidateTokens  int64
	TotalTokens      int64
	HasUsage         bool
}

// parseEvent decomposes one upstream Gemini-shape SSE payload. The Adapter
// always hands the upstream client Gemini-dialect payloads regardless of
// which client surface originated the request, so the stream consumer only
// ever parses this one shape.
func parseEvent(raw []byte) rawEvent {
	root := gjson.ParseBytes(raw)
	if resp := root.Get("response"); resp.Exists() {
		root = resp
	}

	var ev rawEvent
	if usage := root.Get("usageMetadata"); usage.Exists() {
		ev.HasUsage = true
		ev.PromptTokens = usage.Get("promptTokenCount").Int()
		ev.CandidateTokens = usage.Get("candidatesTokenCount").Int()
		ev.TotalTokens = usage.Get("totalTokenCount").Int()
	}

	candidates := root.Get("candidates").Array()
	if len(candidates) == 0 {
		return ev
	}
	cand := candidates[0]
	ev.FinishReason = mapFinishReason(cand.Get("finishReason").String())

	for _, part := range cand.Get("content.parts").Array() {
		sig := part.Get("thoughtSignature").String()
		if thought := part.Get("thought"); thought.Exists() {
			ev.Thinking += thought.String()
			continue
		}
		if text := part.Get("text"); text.Exists() {
			visible, thinking := splitThinkingMarkers(text.String())
			ev.Text += visible
			ev.Thinking += thinking
			if visible != "" {
				ev.TextSignature = sig
			}
			continue
		}
		if inline := part.Get("inlineData"); inline.Exists() {
			mime := inline.Get("mimeType").String()
			if mime == "" {
				mime = "image/png"
			}
			ev.Images = append(ev.Images, ImagePart{MimeType: mime, DataB64: inline.Get("data").String()})
			continue
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			args := fc.Get("args")
			argsJSON := "{}"
			if args.Exists() {
				argsJSON = args.Raw
			}
			ev.ToolCalls = append(ev.ToolCalls, ToolCallPart{
				ID:               fc.Get("id").String(),
				Name:             fc.Get("name").String(),
				ArgsJSON:         argsJSON,
				ThoughtSignature: sig,
			})
		}
	}
	return ev
}

func mapFinishReason(geminiReason string) string {
	switch geminiReason {
	case "":
		return ""
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	default:
		return "stop"
	}
}
