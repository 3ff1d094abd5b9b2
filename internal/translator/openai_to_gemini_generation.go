package translator

import (
	"strings"

	"antigravity-gateway/internal/constants"
	"github.com/tidwall/gjson"
)

func buildGenerationConfig(rawJSON []byte) map[string]interface{} {
	genConfig := make(map[string]interface{})
	genConfig["candidateCount"] = 1

	if temp := gjson.GetBytes(rawJSON, "temperature"); temp.Exists() {
		genConfig["temperature"] = temp.Value()
	}
	if topP := gjson.GetBytes(rawJSON, "top_p"); topP.Exists() {
		genConfig["topP"] = topP.Value()
	}
	topKValue := constants.DefaultTopK
	if topK := gjson.GetBytes(rawJSON, "top_k"); topK.Exists() {
		value := int(topK.Int())
		if value <= 0 {
			value = constants.DefaultTopK
		}
		if value > constants.MaxTopK {
			value = constants.MaxTopK
		}
		topKValue = value
	}
	genConfig["topK"] = topKValue

	maxTokensValue := -1
	if maxTokens := gjson.GetBytes(rawJSON, "max_tokens"); maxTokens.Exists() {
		maxTokensValue = int(maxTokens.Int())
	}
	if maxCompTokens := gjson.GetBytes(rawJSON, "max_completion_tokens"); maxCompTokens.Exists() {
		maxTokensValue = int(maxCompTokens.Int())
	}
	if maxTokensValue > 0 {
		if maxTokensValue > constants.MaxOutputTokens {
			maxTokensValue = constants.MaxOutputTokens
		}
		genConfig["maxOutputTokens"] = maxTokensValue
	}

	// Additional OpenAI params → Gemini generationConfig
	if fp := gjson.GetBytes(rawJSON, "frequency_penalty"); fp.Exists() {
		genConfig["frequencyPenalty"] = fp.Value()
	}
	if pp := gjson.GetBytes(rawJSON, "presence_penalty"); pp.Exists() {
		genConfig["presencePenalty"] = pp.Value()
	}
	if n := gjson.GetBytes(rawJSON, "n"); n.Exists() {
		genConfig["candidateCount"] = int(n.Int())
	}
	if seed := gjson.GetBytes(rawJSON, "seed"); seed.Exists() {
		genConfig["seed"] = int(seed.Int())
	}

	if mods := gjson.GetBytes(rawJSON, "modalities"); mods.Exists() {
		if responseMods := mapModalities(mods.Array()); len(responseMods) > 0 {
			genConfig["responseModalities"] = responseMods
		}
	}

	if imgCfg := gjson.GetBytes(rawJSON, "image_config"); imgCfg.Exists() {
		if aspect := imgCfg.Get("aspect_ratio"); aspect.Exists() {
			genConfig["responseImageAspectRatio"] = aspect.String()
		}
	}

	if stop := gjson.GetBytes(rawJSON, "stop"); stop.Exists() {
		if stopSeqs := collectStopSequences(stop); len(stopSeqs) > 0 {
			genConfig["stopSequences"] = append(fixedStopSequences(), stopSeqs...)
			return genConfig
		}
	}
	genConfig["stopSequences"] = fixedStopSequences()

	return genConfig
}

// fixedStopSequences is always supplied to the upstream regardless of
// client-requested stop sequences.
func fixedStopSequences() []string {
	return []string{"<|user|>", "<|bot|>", "<|context_request|>", "<|endoftext|>", "<|end_of_turn|>"}
}

// thinkingAllowlist names additional models that enable thinking beyond the
// "-thinking" suffix / gemini-2.5-pro / gemini-3-pro-* rules.
var thinkingAllowlist = map[string]bool{
	"gemini-2.0-flash-thinking-exp": true,
}

// modelThinkingEnabled reports whether model name enables thinking: ends
// with "-thinking", equals "gemini-2.5-pro", starts with "gemini-3-pro-",
// or matches the allowlist.
func modelThinkingEnabled(model string) bool {
	if strings.HasSuffix(model, "-thinking") {
		return true
	}
	if model == "gemini-2.5-pro" {
		return true
	}
	if strings.HasPrefix(model, "gemini-3-pro-") {
		return true
	}
	return thinkingAllowlist[model]
}

// applyModelThinking overrides any client-requested thinkingConfig with the
// model-driven decision: thinkingBudget=1024 when enabled, 0 otherwise.
// forceDisable is set by the Claude-family dialect hop when prior tool-call
// history is present, to avoid an upstream constraint violation.
func applyModelThinking(genConfig map[string]interface{}, model string, forceDisable bool) {
	if forceDisable || !modelThinkingEnabled(model) {
		genConfig["thinkingConfig"] = map[string]interface{}{"thinkingBudget": 0}
		return
	}
	genConfig["thinkingConfig"] = map[string]interface{}{"thinkingBudget": 1024, "includeThoughts": true}
}

func mapModalities(mods []gjson.Result) []string {
	var responseMods []string
	for _, m := range mods {
		switch strings.ToLower(m.String()) {
		case "text":
			responseMods = append(responseMods, "Text")
		case "image":
			responseMods = append(responseMods, "Image")
		}
	}
	return responseMods
}

func collectStopSequences(stop gjson.Result) []string {
	var stopSeqs []string
	if stop.IsArray() {
		for _, s := range stop.Array() {
			stopSeqs = append(stopSeqs, s.String())
		}
	} else {
		stopSeqs = append(stopSeqs, stop.String())
	}
	return stopSeqs
}

func shouldMergeAdjacent(rawJSON []byte) bool {
	merge := true
	if v := gjson.GetBytes(rawJSON, "compat_merge_adjacent"); v.Exists() {
		if v.Type == gjson.False {
			merge = false
		}
	}
	return merge
}
