package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/tokenmeter/internal/domain"
	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/usage"
	"github.com/kailas-cloud/tokenmeter/internal/metrics"
	"github.com/kailas-cloud/tokenmeter/internal/usecase/quota"
)

// Error codes carried in the "c" field of the error envelope.
const (
	CodeMissingToken    = 1
	CodeInvalidToken    = 2
	CodeAuthFailure     = 3
	CodeMissingURLPath  = 4
	CodeMissingPayload  = 5
	CodePayloadTooLarge = 10
	CodeDailyLimit      = 11
	CodeMonthlyLimit    = 12
	CodeInternal        = 101
)

// ErrorBody is the {c, m} pair of the error envelope.
type ErrorBody struct {
	Code    int    `json:"c"`
	Message string `json:"m"`
}

// UsageBody is the caller's usage as sent to clients. Countdowns are in
// milliseconds.
type UsageBody struct {
	Daily        int64 `json:"daily"`
	Monthly      int64 `json:"monthly"`
	ResetDaily   int64 `json:"resetDaily"`
	ResetMonthly int64 `json:"resetMonthly"`
}

// Envelope is every JSON reply of the call and usage endpoints. Fields are
// omitted when they do not apply.
type Envelope struct {
	Error  *ErrorBody      `json:"error,omitempty"`
	Usage  *UsageBody      `json:"usage,omitempty"`
	Limits *limits.Limits  `json:"limits,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

func usageToBody(s usage.Snapshot) *UsageBody {
	rec := s.Record()
	return &UsageBody{
		Daily:        rec.Daily(),
		Monthly:      rec.Monthly(),
		ResetDaily:   s.ResetDaily().Milliseconds(),
		ResetMonthly: s.ResetMonthly().Milliseconds(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	metrics.RecordErrorCode(r.Context(), code)
	writeJSON(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// writeDenial replies 403 with the quota decision. Usage denials carry the
// snapshot and limits; a size denial carries only the error.
func writeDenial(w http.ResponseWriter, r *http.Request, denied *quota.DeniedError) {
	d := denied.Decision
	env := Envelope{Error: &ErrorBody{Message: denied.Error()}}

	switch d.Reason {
	case quota.ReasonPayloadTooLarge:
		env.Error.Code = CodePayloadTooLarge
	case quota.ReasonDailyLimit:
		env.Error.Code = CodeDailyLimit
	case quota.ReasonMonthlyLimit:
		env.Error.Code = CodeMonthlyLimit
	}
	if d.Snapshot != nil {
		lim := d.Limits
		env.Usage = usageToBody(*d.Snapshot)
		env.Limits = &lim
	}

	metrics.RecordErrorCode(r.Context(), env.Error.Code)
	writeJSON(w, http.StatusForbidden, env)
}

// internalSummary names the matched sentinel without exposing internals.
func internalSummary(err error) string {
	sentinels := []error{
		domain.ErrProviderNotConfigured,
		domain.ErrUpstream,
		domain.ErrStore,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func internalMessage(err error) string {
	return fmt.Sprintf("Internal Server Error: %s", internalSummary(err))
}
