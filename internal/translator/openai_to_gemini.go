package translator

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/sjson"
)

func init() {
	// Register OpenAI → Gemini translators
	Register(FormatOpenAI, FormatGemini, TranslatorConfig{
		RequestTransform: OpenAIToGeminiRequest,
	})
}

// defaultSignatures is the process-wide thought-signature memory shared by
// every OpenAI-dialect request, matching the spec's "process-wide" scope
// for ThoughtSignatureMap.
var defaultSignatures = NewSignatureStore()

// Signatures exposes the shared signature store so the Streaming Engine can
// register new signatures as responses complete.
func Signatures() *SignatureStore { return defaultSignatures }

// translateOptions lets a dialect hop (Anthropic → OpenAI → Gemini) adjust
// the shared translation pipeline without duplicating it.
type translateOptions struct {
	claudeFamily bool
}

// OpenAIToGeminiRequest converts OpenAI chat completions request to Gemini format.
func OpenAIToGeminiRequest(model string, rawJSON []byte, stream bool) []byte { // stream kept for interface compatibility
	return translateToGemini(model, rawJSON, translateOptions{})
}

// translateToGemini is the shared core both the native OpenAI entrypoint
// and the Anthropic dialect hop funnel through.
func translateToGemini(model string, rawJSON []byte, opts translateOptions) []byte {
	out := `{"contents":[]}`

	genConfig := buildGenerationConfig(rawJSON)

	// Claude-family requests with prior tool-call history force thinking off
	// to avoid an upstream constraint violation.
	forceDisableThinking := opts.claudeFamily && hasToolCallHistory(rawJSON)
	applyModelThinking(genConfig, model, forceDisableThinking)

	if isImageGenerationModel(model) {
		genConfig["responseModalities"] = []string{"TEXT", "IMAGE"}
	}

	genConfigJSON, _ := json.Marshal(genConfig)
	out, _ = sjson.SetRaw(out, "generationConfig", string(genConfigJSON))

	var sigs *SignatureStore
	if !opts.claudeFamily {
		sigs = defaultSignatures
	}
	contents, systemInstructions := translateMessages(rawJSON, model, sigs)
	if opts.claudeFamily {
		contents = stripThoughtSignatures(contents)
	}
	if shouldMergeAdjacent(rawJSON) {
		contents = mergeConsecutiveMessages(contents)
	}

	contentsJSON, _ := json.Marshal(contents)
	out, _ = sjson.SetRaw(out, "contents", string(contentsJSON))

	if isImageGenerationModel(model) {
		systemInstructions = append(systemInstructions, map[string]interface{}{
			"text": imageSteeringNote,
		})
	}
	if len(systemInstructions) > 0 {
		sysJSON, _ := json.Marshal(map[string]interface{}{"parts": systemInstructions})
		out, _ = sjson.SetRaw(out, "systemInstruction", string(sysJSON))
	}

	out = applyToolDeclarations(out, rawJSON)
	out = applyResponseFormat(out, rawJSON)

	return []byte(out)
}

// imageSteeringNote is appended to the system prompt for image-generation
// models so the upstream produces a markdown-embeddable image response
//.
const imageSteeringNote = "When generating an image, respond with the image content only; do not describe it in prose."

func isImageGenerationModel(model string) bool {
	return strings.Contains(model, "image") || strings.HasSuffix(model, "-image-generation")
}

// hasToolCallHistory reports whether any assistant message in the request
// carries tool_calls, signaling prior tool-call history to the Claude-family
// thinking override.
func hasToolCallHistory(rawJSON []byte) bool {
	messages := gjsonGetMessages(rawJSON)
	for _, msg := range messages {
		if msg.Get("role").String() == "assistant" && msg.Get("tool_calls").Exists() {
			return true
		}
	}
	return false
}

// stripThoughtSignatures removes every thoughtSignature field from content
// parts, required for Claude-family requests.
func stripThoughtSignatures(contents []interface{}) []interface{} {
	for _, c := range contents {
		msg, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		parts, ok := msg["parts"].([]interface{})
		if !ok {
			continue
		}
		for _, p := range parts {
			if part, ok := p.(map[string]interface{}); ok {
				delete(part, "thoughtSignature")
			}
		}
	}
	return contents
}
