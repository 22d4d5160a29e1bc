package platform

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/clipstage/backend/internal/apperrors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(ClientConfig{
		BaseURL:   srv.URL,
		AccountID: "acct-1",
		APIToken:  "token-1",
	}, srv.Client(), nil)
	return c, srv
}

func TestClientMissingConfigFailsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
	}{
		{"missing account id", ClientConfig{APIToken: "token-1"}},
		{"missing api token", ClientConfig{AccountID: "acct-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			}))
			defer srv.Close()

			cfg := tt.cfg
			cfg.BaseURL = srv.URL
			c := NewClient(cfg, srv.Client(), nil)

			_, err := c.ListVideos(context.Background())
			var cfgErr *apperrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("want ConfigError, got %v", err)
			}
			if n := atomic.LoadInt32(&calls); n != 0 {
				t.Fatalf("expected no network activity, saw %d requests", n)
			}
		})
	}
}

func TestClientUnwrapsEnvelope(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acct-1/stream/abc123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"result":{"uid":"abc123","readyToStream":true,"status":{"state":"ready"}}}`))
	}))

	v, err := c.Video(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if v.UID != "abc123" || !v.Ready() {
		t.Fatalf("unexpected video: %+v", v)
	}
}

func TestClientErrorUsesFirstPlatformMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"errors":[{"code":10005,"message":"video not found"},{"code":1,"message":"second"}]}`))
	}))

	_, err := c.Video(context.Background(), "missing")
	var remoteErr *apperrors.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("want RemoteError, got %v", err)
	}
	if remoteErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", remoteErr.Status)
	}
	if remoteErr.Message != "video not found" {
		t.Errorf("message = %q, want first platform message", remoteErr.Message)
	}
}

func TestClientErrorWithoutBodyFallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Video(context.Background(), "abc123")
	var remoteErr *apperrors.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("want RemoteError, got %v", err)
	}
	if remoteErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Errorf("message = %q", remoteErr.Message)
	}
}

func TestClientEmptyBodyOnSuccessIsValid(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"no body", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}},
		{"non-json body", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("ok"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			if err := c.DeleteVideo(context.Background(), "abc123"); err != nil {
				t.Fatalf("DeleteVideo: %v", err)
			}
		})
	}
}

func TestClientDoesNotRetry(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := c.ListVideos(context.Background()); err == nil {
		t.Fatal("want error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("saw %d requests, want exactly 1", n)
	}
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	c := NewClient(ClientConfig{BaseURL: srv.URL, AccountID: "acct-1", APIToken: "token-1"}, nil, nil)
	_, err := c.ListVideos(context.Background())
	var transportErr *apperrors.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("want TransportError, got %v", err)
	}
}

func TestClientSetLiveInputPaused(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusOK)
	}))

	if err := c.SetLiveInputPaused(context.Background(), "li-1", true); err != nil {
		t.Fatalf("SetLiveInputPaused: %v", err)
	}
	if gotBody != `{"paused":true}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestClientCreatePlaybackToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acct-1/stream/abc123/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"result":{"token":"tok_42"}}`))
	}))

	tok, err := c.CreatePlaybackToken(context.Background(), "abc123", 0)
	if err != nil {
		t.Fatalf("CreatePlaybackToken: %v", err)
	}
	if tok != "tok_42" {
		t.Errorf("token = %q", tok)
	}
}
