package dispatch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/c360/nodegate/errors"
)

// Kind classifies why a forwarded request failed.
type Kind int

const (
	// KindModuleNotFound means the module name is not registered.
	KindModuleNotFound Kind = iota
	// KindRemoteHTTP means the module answered with a 4xx or 5xx status.
	KindRemoteHTTP
	// KindConnectionUnavailable means the module could not be reached.
	KindConnectionUnavailable
	// KindTimeout means the request exceeded its deadline.
	KindTimeout
	// KindMalformedResponse means the module answered with a body that is not JSON.
	KindMalformedResponse
	// KindTransport covers every other transport fault: DNS, TLS, malformed request.
	KindTransport
	// KindInternal means the gateway itself failed unexpectedly.
	KindInternal
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindModuleNotFound:
		return "module_not_found"
	case KindRemoteHTTP:
		return "remote_http_error"
	case KindConnectionUnavailable:
		return "connection_unavailable"
	case KindTimeout:
		return "timeout"
	case KindMalformedResponse:
		return "malformed_response"
	case KindTransport:
		return "transport_error"
	case KindInternal:
		return "internal_error"
	default:
		return "unknown"
	}
}

// maxDetailBytes bounds raw remote bodies echoed back in error details.
const maxDetailBytes = 512

// GatewayError is the failure half of a Result.
type GatewayError struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Details carries the remote body (decoded JSON or truncated text) when there is one.
	Details any

	cause error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return e.Message
}

// Unwrap returns the transport or decoding error behind the failure, if any.
func (e *GatewayError) Unwrap() error {
	return e.cause
}

// Wire returns the JSON shape sent to clients.
func (e *GatewayError) Wire() map[string]any {
	body := map[string]any{
		"success":     false,
		"error":       e.Message,
		"status_code": e.StatusCode,
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return body
}

// Result is the outcome of Forward: exactly one of Body or Err is meaningful.
type Result struct {
	Body any
	Err  *GatewayError
}

// Success wraps a decoded module response.
func Success(body any) Result {
	return Result{Body: body}
}

// Failure wraps a gateway error.
func Failure(err *GatewayError) Result {
	return Result{Err: err}
}

// OK reports whether the module answered successfully.
func (r Result) OK() bool {
	return r.Err == nil
}

// StatusCode is the HTTP status the listener should answer with.
func (r Result) StatusCode() int {
	if r.Err == nil {
		return http.StatusOK
	}
	return r.Err.StatusCode
}

// Wire returns the value the listener serializes: the module body on success,
// the structured error record otherwise.
func (r Result) Wire() any {
	if r.Err == nil {
		return r.Body
	}
	return r.Err.Wire()
}

func moduleNotFound(module string) *GatewayError {
	return &GatewayError{
		Kind:       KindModuleNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("module '%s' not found or not configured", module),
	}
}

func remoteHTTPError(module string, status int, body []byte) *GatewayError {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	e := &GatewayError{
		Kind:       KindRemoteHTTP,
		StatusCode: status,
		Message:    fmt.Sprintf("module '%s' returned HTTP %d %s", module, status, http.StatusText(status)),
	}
	if len(body) > 0 {
		if decoded, err := decodeJSON(body); err == nil {
			e.Details = decoded
		} else {
			e.Details = truncate(body)
		}
	}
	return e
}

func connectionError(module string, cause error) *GatewayError {
	return &GatewayError{
		Kind:       KindConnectionUnavailable,
		StatusCode: http.StatusServiceUnavailable,
		Message:    fmt.Sprintf("connection error: module '%s' is unreachable", module),
		cause:      cause,
	}
}

func timeoutError(module string, cause error) *GatewayError {
	return &GatewayError{
		Kind:       KindTimeout,
		StatusCode: http.StatusGatewayTimeout,
		Message:    fmt.Sprintf("gateway timeout: module '%s' did not respond in time", module),
		cause:      cause,
	}
}

func transportError(module string, cause error) *GatewayError {
	return &GatewayError{
		Kind:       KindTransport,
		StatusCode: http.StatusInternalServerError,
		Message:    fmt.Sprintf("request to module '%s' failed: %s", module, transportReason(cause)),
		cause:      cause,
	}
}

// transportReason names the failure class of a transport error. The raw
// error text carries module URLs and resolver addresses and stays in logs.
func transportReason(err error) string {
	var (
		dnsErr    *net.DNSError
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		certErr   x509.CertificateInvalidError
		verifyErr *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
		alertErr  tls.AlertError
	)
	switch {
	case errors.As(err, &dnsErr):
		return "host could not be resolved"
	case errors.As(err, &verifyErr), errors.As(err, &unknownCA),
		errors.As(err, &hostErr), errors.As(err, &certErr):
		return "TLS certificate rejected"
	case errors.As(err, &recordErr), errors.As(err, &alertErr):
		return "TLS handshake failed"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	case errors.IsInvalid(err):
		return "payload could not be encoded"
	default:
		return "transport error"
	}
}

func malformedResponse(module string, body []byte, cause error) *GatewayError {
	return &GatewayError{
		Kind:       KindMalformedResponse,
		StatusCode: http.StatusBadGateway,
		Message:    fmt.Sprintf("invalid JSON response from module '%s'", module),
		Details:    truncate(body),
		cause:      cause,
	}
}

func internalError(cause error) *GatewayError {
	return &GatewayError{
		Kind:       KindInternal,
		StatusCode: http.StatusInternalServerError,
		Message:    "internal gateway error",
		cause:      cause,
	}
}

// truncate renders at most maxDetailBytes of body as valid UTF-8 text.
func truncate(body []byte) string {
	if len(body) <= maxDetailBytes {
		return strings.ToValidUTF8(string(body), "�")
	}
	cut := body[:maxDetailBytes]
	// Drop a rune split by the cut.
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0 && !utf8.Valid(cut); i++ {
		cut = cut[:len(cut)-1]
	}
	return strings.ToValidUTF8(string(cut), "�") + "..."
}
