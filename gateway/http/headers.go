package http

import (
	"net/http"
	"strings"
)

// hopByHopHeaders are meaningful for a single connection only (RFC 9110 7.6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Headers the outbound client sets itself. Accept-Encoding is dropped so the
// transport negotiates and decodes compression on its own.
var transportHeaders = []string{
	"Host",
	"Content-Length",
	"Accept-Encoding",
}

// forwardHeaders flattens the inbound headers that may reach a module.
// Multi-valued headers are joined with ", ". Everything in drop is removed
// along with hop-by-hop headers and any header listed in Connection.
func forwardHeaders(in http.Header, drop ...string) map[string]string {
	skip := make(map[string]bool, len(hopByHopHeaders)+len(transportHeaders)+len(drop))
	for _, h := range hopByHopHeaders {
		skip[h] = true
	}
	for _, h := range transportHeaders {
		skip[h] = true
	}
	for _, h := range drop {
		if h != "" {
			skip[http.CanonicalHeaderKey(h)] = true
		}
	}
	for _, v := range in.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				skip[http.CanonicalHeaderKey(name)] = true
			}
		}
	}

	out := make(map[string]string, len(in))
	for name, values := range in {
		canonical := http.CanonicalHeaderKey(name)
		if skip[canonical] || len(values) == 0 {
			continue
		}
		out[canonical] = strings.Join(values, ", ")
	}
	return out
}
