package streaming

import apperrors "antigravity-gateway/internal/errors"

// RejectClientStreaming enforces the Gemini-dialect non-goal: this surface
// is never streamed to the client, only the non-stream buffered
// JSON path is served. The non-stream body itself is the upstream response
// passed through unchanged, so there is nothing else for this package to
// do on that path.
func RejectClientStreaming(requested bool) error {
	if !requested {
		return nil
	}
	return apperrors.BadRequest("streaming is not supported for this endpoint")
}
