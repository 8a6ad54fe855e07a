package weberr

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// StatusPolicy maps unified error kinds to HTTP status codes. Kinds not
// present in the policy render as 500: this layer cannot know which
// internal failures are safe to disclose, so the default fails closed.
//
// Callers producing HTTP at the boundary are expected to install their
// own per-kind overrides where a 4xx is known to be safe.
type StatusPolicy map[Kind]int

// DefaultPolicy returns the fail-closed policy: every kind maps to 500.
func DefaultPolicy() StatusPolicy {
	return StatusPolicy{
		KindEndpoint:      http.StatusInternalServerError,
		KindHeader:        http.StatusInternalServerError,
		KindEncoding:      http.StatusInternalServerError,
		KindForm:          http.StatusInternalServerError,
		KindQuery:         http.StatusInternalServerError,
		KindBody:          http.StatusInternalServerError,
		KindAuthorization: http.StatusInternalServerError,
		KindCanceled:      http.StatusInternalServerError,
		KindMailbox:       http.StatusInternalServerError,
	}
}

// Status returns the HTTP status for err under this policy, falling
// back to 500 for kinds the policy does not cover.
func (p StatusPolicy) Status(err error) int {
	if code, ok := p[KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// errorBody is the generic JSON failure payload. Only the kind is
// disclosed; message and cause stay in the logs.
type errorBody struct {
	Error string `json:"error"`
}

// WriteError renders err as a generic HTTP failure response under the
// given policy and logs the full structured error for the operator. No
// internal detail reaches the client.
func WriteError(w http.ResponseWriter, logger *slog.Logger, policy StatusPolicy, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = DefaultPolicy()
	}

	unified := Convert(err)
	status := policy.Status(unified)

	logger.Error("request failed",
		"kind", string(unified.Kind),
		"status", status,
		"error", unified.Error(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: string(unified.Kind)})
}
