package translator

import "antigravity-gateway/internal/credential"

// UpstreamRequest is the Request Adapter's single internal representation,
// handed to the upstream Antigravity client regardless of which client
// dialect produced it.
type UpstreamRequest struct {
	Model       string
	Payload     []byte
	Stream      bool
	ProjectID   string
	AccessToken string
}

// Adapter implements the three-dialect ⇄ upstream translation contract
//. It is safe for concurrent use; its only mutable state is the
// process-wide thought-signature memory.
type Adapter struct {
	signatures *SignatureStore
}

// NewAdapter constructs an Adapter sharing the package's default
// signature store, kept singular as a process-wide mapping.
func NewAdapter() *Adapter {
	return &Adapter{signatures: defaultSignatures}
}

// FromOpenAIChat translates a native OpenAI chat-completions request body.
func (a *Adapter) FromOpenAIChat(model string, body []byte, stream bool, token credential.View) UpstreamRequest {
	payload := translateToGemini(model, body, translateOptions{})
	return UpstreamRequest{Model: model, Payload: payload, Stream: stream, ProjectID: token.ProjectID, AccessToken: token.AccessToken}
}

// FromAnthropicMessages performs the Anthropic → OpenAI dialect hop, then
// funnels through the same OpenAI → upstream pipeline.
func (a *Adapter) FromAnthropicMessages(model string, body []byte, stream bool, token credential.View) UpstreamRequest {
	openaiShape := mapClaudeToOpenAI(body)
	payload := translateToGemini(model, openaiShape, translateOptions{claudeFamily: true})
	return UpstreamRequest{Model: model, Payload: payload, Stream: stream, ProjectID: token.ProjectID, AccessToken: token.AccessToken}
}

// FromGemini passes a native Gemini generateContent body through mostly
// unchanged; only credential routing fields are attached. The
// non-stream-only constraint is enforced by the caller (Orchestrator),
// not here.
func (a *Adapter) FromGemini(model string, body []byte, token credential.View) UpstreamRequest {
	return UpstreamRequest{Model: model, Payload: body, Stream: false, ProjectID: token.ProjectID, AccessToken: token.AccessToken}
}

// RegisterResponseSignatures is invoked by the Streaming Engine on every
// terminal event stream to populate the thought-signature maps.
func (a *Adapter) RegisterResponseSignatures(toolCallSignatures map[string]string, textSignatures map[string]string) {
	for id, sig := range toolCallSignatures {
		a.signatures.RegisterToolCall(id, sig)
	}
	for text, sig := range textSignatures {
		a.signatures.RegisterText(text, sig)
	}
}
