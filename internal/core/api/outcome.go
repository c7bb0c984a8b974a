package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
)

// Outcome is the structured result of one dispatched request. The dispatcher
// never lets an error cross its public boundary; every failure mode resolves
// to an Outcome with Data absent. Status 0 is reserved for the cases where no
// HTTP response was obtained at all, so callers can fall back locally on any
// Status == 0.
type Outcome struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Err    string          `json:"error,omitempty"`
	Status int             `json:"status"`
}

// OK reports whether the request produced a 2xx response.
func (o Outcome) OK() bool {
	return o.Status >= 200 && o.Status < 300 && o.Err == ""
}

// Decode unmarshals the response body into v.
func (o Outcome) Decode(v any) error {
	if len(o.Data) == 0 {
		return errors.New("api: outcome has no data")
	}
	return json.Unmarshal(o.Data, v)
}

// Outcome classes, used as metric labels and for caller-side branching.
const (
	ClassOK          = "ok"
	ClassServerError = "server_error"
	ClassAuthExpired = "auth_expired"
	ClassRateLimited = "rate_limited"
	ClassTimeout     = "timeout"
	ClassUnreachable = "unreachable"
	ClassNetwork     = "network"
)

// User-facing failure messages. Timeout and Unreachable both report status 0
// and are distinguished only by text.
const (
	msgTimeout     = "request timed out, please check your network connection"
	msgUnreachable = "cannot reach the server, please check your network connection"
	msgNetwork     = "a network error occurred"
	msgAuthExpired = "session expired, please sign in again"
	msgServerError = "request failed"
)

// classifyTransportError maps an error from the HTTP transport to an outcome
// class and message. Timeouts (deadline or transport-reported) come first;
// any url.Error that is not a timeout means no response was obtained.
func classifyTransportError(err error) (string, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout, msgTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return ClassTimeout, msgTimeout
		}
		return ClassUnreachable, msgUnreachable
	}
	return ClassNetwork, msgNetwork
}

// errorEnvelope is the backend's error body shape; the message is passed
// through verbatim when present.
type errorEnvelope struct {
	Message string `json:"message"`
}
