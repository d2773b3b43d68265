// Package normalize turns raw SchoolSnap backend responses into canonical
// payloads, substituting deterministic placeholder data when the backend
// answers with something the client cannot use and degraded mode is on.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

const (
	statusSuccessful   = "successful"
	statusAuthRequired = "authentication-required"
)

// Reason explains why fallback data was used.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonHTMLPage               Reason = "html_page"
	ReasonAuthenticationRequired Reason = "authentication_required"
	ReasonUnauthorized           Reason = "unauthorized"
	ReasonMethodNotAllowed       Reason = "method_not_allowed"
	ReasonUnknownShape           Reason = "unknown_shape"
	ReasonUnreachable            Reason = "unreachable"
)

// Response is the raw HTTP answer of the backend.
type Response struct {
	Body       []byte
	StatusCode int
}

// Args are the request arguments fallback data is tailored to.
type Args struct {
	GradeID      int
	Page         int
	PageSize     int
	AssetBaseURL string
}

// Envelope is the decoded `{status, message, data}` wrapper.
type Envelope struct {
	Status  string
	Message string
	Data    json.RawMessage
}

// Transformer describes one query: how to reshape a successful payload and
// what to substitute when the payload is unusable. A nil Fallback means the
// query has no placeholder (mutations) and unusable answers become errors.
// DataOptional accepts successful answers without a data field.
type Transformer[T any] struct {
	Query        string
	Reshape      func(env Envelope, args Args) (T, error)
	Fallback     func(args Args) T
	DataOptional bool
}

// Result is the canonical outcome of a query.
type Result[T any] struct {
	Status string
	Data   T
	Source models.DataSource
	Reason Reason
}

// Observer is notified of every normalised response.
type Observer func(query string, source models.DataSource, reason Reason)

// Policy configures how unusable responses are handled.
type Policy struct {
	DegradedMode bool
	Logger       *zap.Logger
	Observe      Observer
}

// Apply runs the detection order over resp and returns the canonical result.
func Apply[T any](p Policy, resp Response, args Args, t Transformer[T]) (Result[T], error) {
	body := unwrapString(bytes.TrimSpace(resp.Body))

	if looksLikeHTML(body) {
		return degrade(p, t, args, ReasonHTMLPage, "")
	}

	env, isObject, parseErr := decodeEnvelope(body)
	if parseErr == nil && isObject && env.Status == statusAuthRequired {
		return degrade(p, t, args, ReasonAuthenticationRequired, env.Message)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return degrade(p, t, args, ReasonUnauthorized, env.Message)
	case http.StatusMethodNotAllowed:
		return degrade(p, t, args, ReasonMethodNotAllowed, env.Message)
	}

	if parseErr != nil {
		p.logger().Warn("backend response is not valid json",
			zap.String("query", t.Query),
			zap.Int("status_code", resp.StatusCode),
			zap.Error(parseErr))
		return Result[T]{}, appErrors.Wrap(parseErr, appErrors.ErrUpstreamParse.Code, appErrors.ErrUpstreamParse.Status,
			fmt.Sprintf("%s: %s", appErrors.ErrUpstreamParse.Message, t.Query))
	}

	if isObject && env.Status == statusSuccessful && (env.Data != nil || t.DataOptional) {
		data, err := t.Reshape(env, args)
		if err == nil {
			p.observe(t.Query, models.SourceLive, ReasonNone)
			return Result[T]{Status: env.Status, Data: data, Source: models.SourceLive}, nil
		}
		p.logger().Warn("backend payload could not be reshaped",
			zap.String("query", t.Query),
			zap.Error(err))
	}

	return degrade(p, t, args, ReasonUnknownShape, env.Message)
}

// Unreachable handles a transport failure (dial error, timeout) like an
// unusable answer: placeholder data in degraded mode, an error otherwise.
func Unreachable[T any](p Policy, args Args, t Transformer[T], cause error) (Result[T], error) {
	if !p.DegradedMode || t.Fallback == nil {
		return Result[T]{}, appErrors.Wrap(cause, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status,
			appErrors.ErrUpstreamUnavailable.Message)
	}
	return degrade(p, t, args, ReasonUnreachable, cause.Error())
}

func degrade[T any](p Policy, t Transformer[T], args Args, reason Reason, message string) (Result[T], error) {
	if !p.DegradedMode || t.Fallback == nil {
		p.logger().Warn("backend response unusable",
			zap.String("query", t.Query),
			zap.String("reason", string(reason)),
			zap.String("message", message))
		return Result[T]{}, errorFor(reason, message)
	}

	p.logger().Warn("serving fallback data",
		zap.String("query", t.Query),
		zap.String("reason", string(reason)),
		zap.Int("grade_id", args.GradeID))
	p.observe(t.Query, models.SourceFallback, reason)
	return Result[T]{
		Status: statusSuccessful,
		Data:   t.Fallback(args),
		Source: models.SourceFallback,
		Reason: reason,
	}, nil
}

func errorFor(reason Reason, message string) error {
	switch reason {
	case ReasonAuthenticationRequired, ReasonUnauthorized:
		return appErrors.Clone(appErrors.ErrUnauthorized, "school backend requires authentication")
	case ReasonUnknownShape:
		if message != "" {
			return appErrors.Clone(appErrors.ErrUpstreamRejected, message)
		}
		return appErrors.Clone(appErrors.ErrUpstreamUnavailable, "unexpected response from school backend")
	case ReasonMethodNotAllowed:
		return appErrors.Clone(appErrors.ErrUpstreamUnavailable, "school backend endpoint mismatch")
	default:
		return appErrors.Clone(appErrors.ErrUpstreamUnavailable, "school backend returned an error page")
	}
}

func looksLikeHTML(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("<!doctype html")) || bytes.Contains(lower, []byte("<html"))
}

type rawEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// unwrapString removes one level of JSON-string encoding, as sent by
// endpoints that serialise their payload twice.
func unwrapString(body []byte) []byte {
	if len(body) == 0 || body[0] != '"' {
		return body
	}
	var inner string
	if err := json.Unmarshal(body, &inner); err != nil {
		return body
	}
	return bytes.TrimSpace([]byte(inner))
}

func decodeEnvelope(body []byte) (Envelope, bool, error) {
	if len(body) == 0 {
		return Envelope{}, false, errors.New("empty body")
	}
	if !json.Valid(body) {
		return Envelope{}, false, errors.New("invalid json")
	}
	if body[0] != '{' {
		return Envelope{}, false, nil
	}

	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		// Valid JSON object whose status/message are not strings.
		return Envelope{}, true, nil
	}
	env := Envelope{Status: raw.Status, Message: raw.Message}
	if len(raw.Data) > 0 && !bytes.Equal(raw.Data, []byte("null")) {
		env.Data = raw.Data
	}
	return env, true, nil
}

func (p Policy) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p Policy) observe(query string, source models.DataSource, reason Reason) {
	if p.Observe != nil {
		p.Observe(query, source, reason)
	}
}
