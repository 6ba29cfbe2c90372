package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/c360/nodegate/errors"
)

// unknownModuleLabel keeps client-chosen names out of metric labels.
const unknownModuleLabel = "_unknown"

// Request is one logical call to relay to a module.
type Request struct {
	Module   string
	Endpoint string
	Payload  any
	Method   string            // defaults to POST
	Headers  map[string]string // already stripped of hop-by-hop headers
}

// JoinURL joins a base URL and an endpoint path with a single slash. Exactly
// one trailing slash is removed from base and exactly one leading slash from
// endpoint; any further slashes are kept.
func JoinURL(base, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

// carriesBody reports whether the payload travels as a JSON body for method.
func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// Forward relays req to its module and always returns a Result; transport
// failures and internal faults are translated, never propagated.
func (d *Dispatcher) Forward(ctx context.Context, req Request) (result Result) {
	start := time.Now()
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	label := req.Module

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Forward panicked", "module", req.Module, "endpoint", req.Endpoint, "panic", r)
			result = Failure(internalError(fmt.Errorf("panic: %v", r)))
		}
		d.recorder.RecordForward(label, method, result.StatusCode(), time.Since(start))
	}()

	baseURL, ok := d.registry.Get(req.Module)
	if !ok {
		label = unknownModuleLabel
		d.logger.Warn("Unknown module requested", "module", req.Module)
		return Failure(moduleNotFound(req.Module))
	}

	target := JoinURL(baseURL, req.Endpoint)

	ctx, cancel := context.WithTimeout(ctx, d.forwardTimeout)
	defer cancel()

	httpReq, err := d.buildRequest(ctx, method, target, req)
	if err != nil {
		d.logger.Error("Building module request failed", "module", req.Module, "url", target, "error", err)
		return Failure(transportError(req.Module, err))
	}

	d.logger.Debug("Forwarding request", "module", req.Module, "method", method, "url", target)

	resp, err := d.forwardClient.Do(httpReq)
	if err != nil {
		gerr := d.classifyTransport(ctx, req.Module, err)
		d.logger.Error("Forward failed",
			"module", req.Module, "url", target, "error_class", gerr.Kind.String(), "error", err)
		return Failure(gerr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxResponseSize+1))
	if err != nil {
		gerr := d.classifyTransport(ctx, req.Module, err)
		d.logger.Error("Reading module response failed",
			"module", req.Module, "url", target, "error_class", gerr.Kind.String(), "error", err)
		return Failure(gerr)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		d.logger.Warn("Module returned error status",
			"module", req.Module, "url", target, "status", resp.StatusCode)
		return Failure(remoteHTTPError(req.Module, resp.StatusCode, body))
	}

	if int64(len(body)) > d.maxResponseSize {
		d.logger.Warn("Module response too large",
			"module", req.Module, "url", target, "limit", d.maxResponseSize)
		return Failure(malformedResponse(req.Module, body,
			errors.WrapInvalid(errors.ErrInvalidResponse, "Dispatcher", "Forward", "response size check")))
	}

	decoded, err := decodeJSON(body)
	if err != nil {
		d.logger.Warn("Module returned invalid JSON", "module", req.Module, "url", target, "error", err)
		return Failure(malformedResponse(req.Module, body, err))
	}

	return Success(decoded)
}

func (d *Dispatcher) buildRequest(ctx context.Context, method, target string, req Request) (*http.Request, error) {
	var body io.Reader

	switch {
	case method == http.MethodGet:
		withQuery, err := appendQuery(target, req.Payload)
		if err != nil {
			return nil, err
		}
		target = withQuery
	case carriesBody(method):
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Dispatcher", "buildRequest", "encode JSON payload")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if carriesBody(method) && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

func (d *Dispatcher) classifyTransport(ctx context.Context, module string, err error) *GatewayError {
	switch {
	case errors.IsConnectionRefused(err):
		return connectionError(module, err)
	case errors.IsTimeout(err) || ctx.Err() == context.DeadlineExceeded:
		return timeoutError(module, err)
	default:
		return transportError(module, err)
	}
}

// appendQuery encodes an object payload as query parameters on target,
// keeping any query the endpoint already carries.
func appendQuery(target string, payload any) (string, error) {
	if payload == nil {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	values := u.Query()
	switch p := payload.(type) {
	case map[string]any:
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := addQueryValue(values, k, p[k]); err != nil {
				return "", err
			}
		}
	case map[string]string:
		for k, v := range p {
			values.Add(k, v)
		}
	case url.Values:
		for k, vs := range p {
			for _, v := range vs {
				values.Add(k, v)
			}
		}
	case map[string][]string:
		for k, vs := range p {
			for _, v := range vs {
				values.Add(k, v)
			}
		}
	default:
		return "", errors.WrapInvalid(errors.ErrInvalidData, "Dispatcher", "appendQuery",
			fmt.Sprintf("GET payload must be an object, got %T", payload))
	}

	if len(values) == 0 {
		return target, nil
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func addQueryValue(values url.Values, key string, v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		for _, item := range val {
			if item == nil {
				continue
			}
			s, err := queryText(item)
			if err != nil {
				return err
			}
			values.Add(key, s)
		}
		return nil
	case []string:
		for _, item := range val {
			values.Add(key, item)
		}
		return nil
	default:
		s, err := queryText(val)
		if err != nil {
			return err
		}
		values.Add(key, s)
		return nil
	}
}

func queryText(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", errors.WrapInvalid(err, "Dispatcher", "queryText", "encode query value")
		}
		return string(data), nil
	}
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.WrapInvalid(err, "Dispatcher", "decodeJSON", "decode response body")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.WrapInvalid(errors.ErrParsingFailed, "Dispatcher", "decodeJSON",
			"trailing data after JSON value")
	}
	return v, nil
}
