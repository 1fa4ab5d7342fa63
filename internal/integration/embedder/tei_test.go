package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/twinlyai/bot-backend/internal/config"
	pkghttp "github.com/twinlyai/bot-backend/pkg/http"
	"go.uber.org/zap"
)

func newTestTEI(url string) *TEIConnector {
	cfg := config.EmbeddingConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout:        5 * time.Second,
			ConnTimeout:           time.Second,
			KeepAlive:             time.Second,
			IdleConnTimeout:       time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			Token:                 "secret",
			Url:                   url,
		},
	}
	return NewTEIConnector(cfg, zap.NewNop())
}

func TestTEIConnectorEmbedStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("path = %q, want /embed", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req teiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Normalize || !req.Truncate {
			t.Errorf("normalize/truncate not set: %+v", req)
		}

		vectors := make([][]float64, len(req.Inputs))
		for i := range req.Inputs {
			vectors[i] = []float64{float64(i), 1}
		}
		_ = json.NewEncoder(w).Encode(vectors)
	}))
	defer srv.Close()

	got, err := newTestTEI(srv.URL).EmbedStrings(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedStrings: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d vectors, want 3", len(got))
	}
	if got[2][0] != 2 {
		t.Errorf("vectors out of order: %v", got)
	}
}

func TestTEIConnectorErrors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		retryable bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model loading", http.StatusServiceUnavailable)
			},
			retryable: true,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "input too long", http.StatusBadRequest)
			},
			retryable: false,
		},
		{
			name: "count mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[[1,2]]`))
			},
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestTEI(srv.URL).EmbedStrings(context.Background(), []string{"a", "b"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := pkghttp.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable(%v) = %v, want %v", err, got, tt.retryable)
			}
		})
	}
}
