// Package orchestrator ties the Credential Pool, Request Adapter, Streaming
// Response Engine, and Usage & Observability Store together for a single
// inbound request: acquire a credential, adapt the request body, drive the
// upstream call with bounded retry, re-emit or buffer the response, and
// record the outcome — regardless of which client dialect (OpenAI,
// Anthropic, Gemini) originated the request.
package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/credential"
	apperrors "antigravity-gateway/internal/errors"
	"antigravity-gateway/internal/handlers/common"
	"antigravity-gateway/internal/oauth"
	"antigravity-gateway/internal/streaming"
	"antigravity-gateway/internal/translator"
	"antigravity-gateway/internal/upstream/gemini"
	"antigravity-gateway/internal/usage"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/sjson"
)

// Dialect identifies which client-facing API shape a request arrived in.
type Dialect string

const (
	DialectOpenAI    Dialect = "openai"
	DialectAnthropic Dialect = "anthropic"
	DialectGemini    Dialect = "gemini"
)

// Request is the orchestrator's dialect-agnostic view of one inbound call.
// API-key validation has already happened in middleware by the time this
// reaches the orchestrator.
type Request struct {
	Dialect Dialect
	Model   string
	Body    []byte
	Stream  bool

	// ForcedProjectID is set for the /{credential}/v1/... routes, which
	// bypass load balancing in favor of a specific credential.
	ForcedProjectID string
}

// Orchestrator wires the four core components for request handling.
type Orchestrator struct {
	cfg       *config.Config
	pool      *credential.Pool
	adapter   *translator.Adapter
	usageLog  *usage.Store
	saveImage streaming.ImageSaver
}

// New constructs an Orchestrator from its four collaborators.
func New(cfg *config.Config, pool *credential.Pool, adapter *translator.Adapter, usageLog *usage.Store, saveImage streaming.ImageSaver) *Orchestrator {
	return &Orchestrator{cfg: cfg, pool: pool, adapter: adapter, usageLog: usageLog, saveImage: saveImage}
}

// Handle drives one request end to end: acquire, adapt, call,
// stream-or-buffer, record. A response is always written, and a log entry
// is always attempted, even if the other one fails — enforced here by
// appending the log entry from a defer so a panic or early return on the
// response side never skips it.
func (o *Orchestrator) Handle(c *gin.Context, req Request) {
	start := time.Now()
	ctx := c.Request.Context()
	entry := usage.LogEntry{
		Timestamp: start,
		Model:     req.Model,
		Method:    c.Request.Method,
		Path:      c.FullPath(),
	}
	defer func() {
		entry.DurationMS = time.Since(start).Milliseconds()
		o.usageLog.Append(ctx, entry)
	}()

	view, err := o.acquireCredential(ctx, req)
	if err != nil {
		o.failBeforeUpstream(c, &entry, err)
		return
	}
	entry.ProjectID = view.ProjectID

	if req.Dialect == DialectGemini && req.Stream {
		o.failBeforeUpstream(c, &entry, streaming.RejectClientStreaming(true))
		return
	}

	upstreamReq := o.adapt(req, view)

	resp, finalView, err := o.callUpstreamWithRetry(ctx, req, upstreamReq, view)
	if err != nil {
		o.pool.RecordOutcome(view.ProjectID, false, req.Model)
		o.failBeforeUpstream(c, &entry, err)
		return
	}
	defer resp.Body.Close()
	entry.ProjectID = finalView.ProjectID

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		o.pool.RecordOutcome(finalView.ProjectID, false, req.Model)
		entry.StatusCode = resp.StatusCode
		entry.Success = false
		entry.Message = string(body)
		common.AbortWithUpstreamError(c, resp.StatusCode, "upstream_error", "upstream returned an error", body)
		return
	}

	if req.Stream {
		o.runStream(c, req, resp.Body, &entry)
	} else {
		o.runBuffered(c, req, resp.Body, &entry)
	}
	o.pool.RecordOutcome(finalView.ProjectID, entry.Success, req.Model)
}

func (o *Orchestrator) acquireCredential(ctx context.Context, req Request) (credential.View, error) {
	if req.ForcedProjectID != "" {
		return o.pool.AcquireByProjectId(ctx, req.ForcedProjectID)
	}
	return o.pool.Acquire(ctx)
}

func (o *Orchestrator) adapt(req Request, view credential.View) translator.UpstreamRequest {
	switch req.Dialect {
	case DialectAnthropic:
		return o.adapter.FromAnthropicMessages(req.Model, req.Body, req.Stream, view)
	case DialectGemini:
		return o.adapter.FromGemini(req.Model, req.Body, view)
	default:
		return o.adapter.FromOpenAIChat(req.Model, req.Body, req.Stream, view)
	}
}

// wrapPayload builds the Code Assist envelope {model, project, request}
// confirmed by the teacher's chat_request.go upstreamPayload.
func wrapPayload(model, projectID string, request []byte) []byte {
	payload, err := sjson.SetRawBytes([]byte(`{}`), "request", request)
	if err != nil {
		payload = []byte(`{}`)
	}
	payload, _ = sjson.SetBytes(payload, "model", model)
	payload, _ = sjson.SetBytes(payload, "project", projectID)
	return payload
}

// callUpstreamWithRetry drives the Code Assist call, retrying up to
// RetryMaxAttempts times with a fresh credential acquisition per attempt
// when the response status is in RetryStatusCodes.
func (o *Orchestrator) callUpstreamWithRetry(ctx context.Context, req Request, upstreamReq translator.UpstreamRequest, view credential.View) (*http.Response, credential.View, error) {
	maxAttempts := o.cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	payload := wrapPayload(upstreamReq.Model, view.ProjectID, upstreamReq.Payload)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		client := gemini.NewWithCredential(o.cfg, &oauth.Credentials{
			AccessToken: view.AccessToken,
			ProjectID:   view.ProjectID,
		}).WithCaller(string(req.Dialect))

		var resp *http.Response
		var err error
		if req.Stream {
			resp, err = client.Stream(ctx, payload)
		} else {
			resp, err = client.Generate(ctx, payload)
		}
		if err != nil {
			return nil, view, apperrors.UpstreamTransient(err.Error())
		}

		retryable := apperrors.IsRetryableStatus(resp.StatusCode, o.cfg.RetryStatusCodes)
		if resp.StatusCode < 400 || !retryable || attempt == maxAttempts-1 {
			return resp, view, nil
		}
		resp.Body.Close()

		fresh, acqErr := o.acquireCredential(ctx, req)
		if acqErr != nil {
			return nil, view, acqErr
		}
		view = fresh
		payload, _ = sjson.SetBytes(payload, "project", view.ProjectID)
	}
	return nil, view, apperrors.UpstreamOther(0, "exhausted retry attempts")
}

func (o *Orchestrator) failBeforeUpstream(c *gin.Context, entry *usage.LogEntry, err error) {
	apiErr, ok := err.(*apperrors.APIError)
	if !ok {
		apiErr = apperrors.UpstreamOther(0, err.Error())
	}
	entry.Success = false
	entry.StatusCode = apiErr.HTTPStatus
	entry.Message = apiErr.Message
	common.AbortWithAPIError(c, apiErr)
}

func (o *Orchestrator) runStream(c *gin.Context, req Request, body io.Reader, entry *usage.LogEntry) {
	w, flusher := common.PrepareSSE(c)

	var emitter streaming.Emitter
	if req.Dialect == DialectAnthropic {
		emitter = streaming.NewAnthropicEmitter(w, flusher, req.Model)
	} else {
		emitter = streaming.NewOpenAIEmitter(w, flusher, req.Model)
	}

	outcome := streaming.Run(c.Request.Context(), body, translator.Signatures(), o.saveImage, emitter)

	entry.StatusCode = http.StatusOK
	entry.Success = outcome.Err == nil
	if outcome.Err != nil {
		entry.Message = outcome.Err.Error()
	}
	entry.Detail = &usage.Detail{
		Response: &usage.ResponseDetail{
			Summary: &usage.StreamSummary{
				Text:      outcome.Text,
				Thinking:  outcome.Thinking,
				ToolCalls: toolCallsForLog(outcome.ToolCalls),
			},
		},
	}
}

func (o *Orchestrator) runBuffered(c *gin.Context, req Request, body io.Reader, entry *usage.LogEntry) {
	raw, err := io.ReadAll(body)
	if err != nil {
		entry.Success = false
		entry.StatusCode = http.StatusBadGateway
		entry.Message = err.Error()
		common.AbortWithError(c, http.StatusBadGateway, "server_error", "failed reading upstream response")
		return
	}

	if req.Dialect == DialectGemini {
		c.Data(http.StatusOK, "application/json", raw)
		entry.StatusCode = http.StatusOK
		entry.Success = true
		entry.Detail = &usage.Detail{Response: &usage.ResponseDetail{Body: json.RawMessage(raw)}}
		return
	}

	target := translator.FormatOpenAI
	if req.Dialect == DialectAnthropic {
		target = translator.FormatAnthropic
	}
	converted, err := translator.TranslateResponse(c.Request.Context(), translator.FormatGemini, target, req.Model, raw)
	if err != nil {
		entry.Success = false
		entry.StatusCode = http.StatusInternalServerError
		entry.Message = err.Error()
		common.AbortWithError(c, http.StatusInternalServerError, "server_error", "failed converting upstream response")
		return
	}

	c.Data(http.StatusOK, "application/json", converted)
	entry.StatusCode = http.StatusOK
	entry.Success = true
	entry.Detail = &usage.Detail{Response: &usage.ResponseDetail{Body: json.RawMessage(converted)}}
}

func toolCallsForLog(calls []streaming.ToolCallPart) any {
	if len(calls) == 0 {
		return nil
	}
	out := make([]map[string]string, 0, len(calls))
	for _, tc := range calls {
		out = append(out, map[string]string{"id": tc.ID, "name": tc.Name, "arguments": tc.ArgsJSON})
	}
	return out
}
