package streaming

import (
	"context"
	"encoding/base64"
	"io"

	"antigravity-gateway/internal/handlers/common"
	"antigravity-gateway/internal/translator"

	log "github.com/sirupsen/logrus"
)

// ImageSaver persists an inline-data image and returns a fetchable URL
// (the external SaveImage capability; storing it is out of scope here).
type ImageSaver func(data []byte, mime string) (string, error)

// Emitter re-emits classified stream events in one client dialect. Run
// drives an Emitter without knowing which dialect it implements.
type Emitter interface {
	Text(delta string)
	Thinking(delta string)
	ToolCall(id, name, argsJSON string)
	Image(url string)
	Finish(hadToolCall bool, usage UsageTotals)
	Error(message string, headersSent bool)
}

// UsageTotals carries token counts for the terminal event, either drawn
// from upstream usage metadata or estimated by the caller.
type UsageTotals struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Estimated        bool
}

// Outcome summarizes one consumed stream for the Usage Store's detail
// snapshot and for the Adapter's post-stream signature registration.
type Outcome struct {
	Text         string
	Thinking     string
	ToolCalls    []ToolCallPart
	ImageURLs    []string
	FinishReason string
	HadToolCall  bool
	Usage        UsageTotals
	RawEvents    []string
	Err          error
}

// Run consumes an upstream SSE body, classifies each event, and drives
// emit with the per-event side effects while buffering images (images are
// only re-emitted once the stream completes).
// On a mid-stream read/decode error it calls emit.Error with headersSent
// true (the caller is expected to have already written at least one event)
// and returns the partial Outcome plus the error.
func Run(ctx context.Context, upstream io.Reader, sigs *translator.SignatureStore, saveImage ImageSaver, emit Emitter) Outcome {
	scanner := common.NewSSEScanner(upstream)

	var out Outcome
	var images []ImagePart
	headersSent := false

	for {
		select {
		case <-ctx.Done():
			out.Err = ctx.Err()
			return out
		default:
		}

		event, done, err := scanner.Next()
		if err != nil {
			emit.Error(err.Error(), headersSent)
			out.Err = err
			return out
		}
		if done {
			break
		}
		if event == nil {
			continue
		}

		ev := parseEvent(event.Raw)
		out.RawEvents = append(out.RawEvents, string(event.Raw))

		if ev.Text != "" {
			emit.Text(ev.Text)
			headersSent = true
			out.Text += ev.Text
			if ev.TextSignature != "" {
				sigs.RegisterText(out.Text, ev.TextSignature)
			}
		}
		if ev.Thinking != "" {
			emit.Thinking(ev.Thinking)
			headersSent = true
			out.Thinking += ev.Thinking
		}
		for _, tc := range ev.ToolCalls {
			emit.ToolCall(tc.ID, tc.Name, tc.ArgsJSON)
			headersSent = true
			out.HadToolCall = true
			out.ToolCalls = append(out.ToolCalls, tc)
			if tc.ThoughtSignature != "" && tc.ID != "" {
				sigs.RegisterToolCall(tc.ID, tc.ThoughtSignature)
			}
		}
		images = append(images, ev.Images...)

		if ev.HasUsage {
			out.Usage = UsageTotals{PromptTokens: ev.PromptTokens, CompletionTokens: ev.CandidateTokens, TotalTokens: ev.TotalTokens}
		}
		if ev.FinishReason != "" {
			out.FinishReason = ev.FinishReason
		}
	}

	for _, img := range images {
		data, err := base64.StdEncoding.DecodeString(img.DataB64)
		if err != nil {
			log.WithError(err).Warn("discarding image event with malformed base64 payload")
			continue
		}
		url, err := saveImage(data, img.MimeType)
		if err != nil {
			log.WithError(err).Warn("failed to persist streamed image")
			continue
		}
		emit.Image(url)
		headersSent = true
		out.ImageURLs = append(out.ImageURLs, url)
	}

	if out.Usage.TotalTokens == 0 {
		out.Usage = estimateUsage(out.Text + out.Thinking)
	}
	emit.Finish(out.HadToolCall, out.Usage)
	return out
}

// estimateUsage applies the 1-token-per-4-character fallback rule used
// when the upstream stream never carried a usageMetadata event.
func estimateUsage(text string) UsageTotals {
	tokens := int64(len(text)+3) / 4
	return UsageTotals{CompletionTokens: tokens, TotalTokens: tokens, Estimated: true}
}
