package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is the outcome taxonomy every pipeline failure is reduced to.
type Kind int

const (
	KindUnclassified Kind = iota
	KindInvalidInput
	KindEmbeddingFailure
	KindRetrievalEmpty
	KindGenerationFailure
	KindUpstreamCapacity
	KindUpstreamRejected
	KindUpstreamAuth
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindEmbeddingFailure:
		return "EmbeddingFailure"
	case KindRetrievalEmpty:
		return "RetrievalEmpty"
	case KindGenerationFailure:
		return "GenerationFailure"
	case KindUpstreamCapacity:
		return "UpstreamCapacity"
	case KindUpstreamRejected:
		return "UpstreamRejected"
	case KindUpstreamAuth:
		return "UpstreamAuth"
	default:
		return "Unclassified"
	}
}

// HTTPStatus returns the status code the HTTP layer answers with for this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindUpstreamRejected:
		return http.StatusBadRequest
	case KindRetrievalEmpty:
		return http.StatusNotFound
	case KindUpstreamCapacity:
		return http.StatusTooManyRequests
	case KindUpstreamAuth:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorLabel is the short value of the "error" field in responses.
func (k Kind) ErrorLabel() string {
	switch k {
	case KindInvalidInput:
		return "Query cannot be empty or contain only invalid characters."
	case KindRetrievalEmpty:
		return "No relevant information found."
	case KindUpstreamCapacity:
		return "Service temporarily unavailable"
	case KindUpstreamRejected:
		return "Request rejected"
	case KindUpstreamAuth:
		return "Server misconfiguration"
	case KindEmbeddingFailure, KindGenerationFailure:
		return "Internal processing failure"
	default:
		return "Internal server error"
	}
}

// PublicMessage is the human readable explanation returned to callers. It never
// carries upstream detail.
func (k Kind) PublicMessage() string {
	switch k {
	case KindInvalidInput:
		return "Please send a plain-text question."
	case KindRetrievalEmpty:
		return "I couldn't find any lore related to your question. Try rephrasing it."
	case KindUpstreamCapacity:
		return "The AI service is busy right now. Please try again in a moment."
	case KindUpstreamRejected:
		return "The question could not be processed. Please rephrase it and try again."
	case KindUpstreamAuth:
		return "The service is not configured correctly. Please contact the operator."
	case KindEmbeddingFailure:
		return "Failed to understand the question. Please try again."
	case KindGenerationFailure:
		return "Failed to generate an answer. Please try again."
	default:
		return "Something went wrong while processing the question."
	}
}

// Error is a pipeline failure tagged with its Kind and the step that produced it.
type Error struct {
	Kind     Kind
	Op       string
	Upstream Upstream
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// upstreamError wraps a failure returned by one of the collaborators and classifies it.
func upstreamError(op string, err error) *Error {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr
	}
	desc := Describe(err)
	return &Error{Kind: Classify(desc), Op: op, Upstream: desc, Err: err}
}

// KindOf returns the Kind of err, Unclassified when err did not come from the pipeline.
func KindOf(err error) Kind {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind
	}
	return KindUnclassified
}

// Upstream is the normalised view of an opaque collaborator error.
type Upstream struct {
	// Status is a canonical status token such as RESOURCE_EXHAUSTED, when one is known.
	Status   string
	HTTPCode int
	Message  string
	// Reason is the machine readable reason from structured error details, e.g. API_KEY_INVALID.
	Reason string
}

var statusTokenPattern = regexp.MustCompile(`\b[A-Z]{4,}(?:_[A-Z]+)*\b`)

// Describe extracts whatever structure err carries. Vendors do not guarantee any of
// it, so every field may be empty.
func Describe(err error) Upstream {
	if err == nil {
		return Upstream{}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		desc := Upstream{HTTPCode: apiErr.Code, Message: apiErr.Message, Reason: detailReason(apiErr.Details)}
		if token := statusToken(apiErr.Status); token != "" {
			desc.Status = token
		} else {
			desc.Status = statusToken(apiErr.Message)
		}
		return desc
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Upstream{Status: canonicalName(codes.DeadlineExceeded), Message: err.Error()}
	}
	if errors.Is(err, context.Canceled) {
		return Upstream{Status: canonicalName(codes.Canceled), Message: err.Error()}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return Upstream{Status: canonicalName(st.Code()), Message: st.Message()}
	}

	return Upstream{Status: statusToken(err.Error()), Message: err.Error()}
}

func detailReason(details []map[string]any) string {
	for _, d := range details {
		if reason, ok := d["reason"].(string); ok && reason != "" {
			return reason
		}
	}
	return ""
}

// statusToken finds the first canonical status name inside text.
func statusToken(text string) string {
	for _, candidate := range statusTokenPattern.FindAllString(text, -1) {
		if c, ok := parseCode(candidate); ok && c != codes.Unknown && c != codes.OK {
			return candidate
		}
	}
	return ""
}

func parseCode(token string) (codes.Code, bool) {
	var c codes.Code
	if err := c.UnmarshalJSON([]byte(`"` + token + `"`)); err != nil {
		return codes.Unknown, false
	}
	return c, true
}

// canonicalName turns a code into its RESOURCE_EXHAUSTED style spelling.
func canonicalName(c codes.Code) string {
	switch c {
	case codes.OK:
		return "OK"
	case codes.Canceled:
		return "CANCELLED"
	}
	name := c.String()
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Classify maps a normalised upstream error onto the taxonomy. An invalid API key is
// checked first, then the status token, then the HTTP code, then keywords in the
// message. Anything still unmatched is Unclassified.
func Classify(u Upstream) Kind {
	msg := strings.ToLower(u.Message)

	// Gemini reports a bad key as INVALID_ARGUMENT; it is still an operator problem.
	if u.Reason == "API_KEY_INVALID" || strings.Contains(msg, "api key not valid") {
		return KindUpstreamAuth
	}

	if c, ok := parseCode(u.Status); ok {
		switch c {
		case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded:
			return KindUpstreamCapacity
		case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
			return KindUpstreamRejected
		case codes.PermissionDenied, codes.Unauthenticated:
			return KindUpstreamAuth
		}
	}

	switch u.HTTPCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindUpstreamCapacity
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindUpstreamRejected
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUpstreamAuth
	}

	switch {
	case containsAny(msg, "quota", "rate limit", "too many requests", "overloaded", "unavailable"):
		return KindUpstreamCapacity
	case containsAny(msg, "api key", "permission", "unauthorized", "forbidden"):
		return KindUpstreamAuth
	case containsAny(msg, "invalid argument", "blocked", "safety"):
		return KindUpstreamRejected
	}

	return KindUnclassified
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
