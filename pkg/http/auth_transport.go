package http

import "net/http"

// bearerTransport sends the upstream service token on every request.
// Requests that already carry an Authorization header are left alone.
type bearerTransport struct {
	header string
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", t.header)
	return t.next.RoundTrip(out)
}

// WithAuthToken authenticates calls to the embedding or generation backend.
// An empty token leaves the transport unchanged, for local backends without auth.
func WithAuthToken(token string) HttpOpts {
	if token == "" {
		return func(*httpConfig) {}
	}
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &bearerTransport{header: "Bearer " + token, next: rt}
	})
}
