package moonraker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEndpoint_URLs(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		wantHTTP string
		wantWS   string
	}{
		{
			name:     "defaults",
			endpoint: Endpoint{},
			wantHTTP: "http://127.0.0.1:7125",
			wantWS:   "ws://127.0.0.1:7125/websocket?token=abc",
		},
		{
			name:     "secure port",
			endpoint: Endpoint{Host: "printer.local", Port: 7130},
			wantHTTP: "https://printer.local:7130",
			wantWS:   "wss://printer.local:7130/websocket?token=abc",
		},
		{
			name:     "route prefix",
			endpoint: Endpoint{Host: "10.0.0.5", Port: 80, RoutePrefix: "/voron/"},
			wantHTTP: "http://10.0.0.5:80/voron",
			wantWS:   "ws://10.0.0.5:80/voron/websocket?token=abc",
		},
		{
			name:     "custom secure set",
			endpoint: Endpoint{Host: "h", Port: 443, SecurePorts: []int{8443}},
			wantHTTP: "http://h:443",
			wantWS:   "ws://h:443/websocket?token=abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.HTTPURL(); got != tt.wantHTTP {
				t.Fatalf("HTTPURL() = %q, want %q", got, tt.wantHTTP)
			}
			if got := tt.endpoint.WebsocketURL("abc"); got != tt.wantWS {
				t.Fatalf("WebsocketURL() = %q, want %q", got, tt.wantWS)
			}
		})
	}
}

func TestParseBaseURL_Normalizes(t *testing.T) {
	u, err := parseBaseURL("example.com:1234/prefix?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Path != "/prefix/" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestRestClient_HandshakeCalls(t *testing.T) {
	t.Parallel()

	var gotKey, gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/server/info":
			_ = json.NewEncoder(w).Encode(map[string]any{"result": ServerInfo{
				KlippyConnected:  true,
				KlippyState:      "ready",
				Components:       []string{"power", "history"},
				MoonrakerVersion: "v0.9.3",
			}})
		case "/access/oneshot_token":
			_ = json.NewEncoder(w).Encode(map[string]any{"result": "tok-1"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewRestClient(endpointFor(t, server.URL), "secret")
	if err != nil {
		t.Fatalf("NewRestClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	info, err := c.ServerInfo(ctx)
	if err != nil {
		t.Fatalf("ServerInfo returned error: %v", err)
	}
	if !info.KlippyConnected || info.KlippyState != "ready" || !info.HasComponent("power") {
		t.Fatalf("ServerInfo payload = %#v", info)
	}
	token, err := c.OneshotToken(ctx)
	if err != nil {
		t.Fatalf("OneshotToken returned error: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("token = %q, want tok-1", token)
	}
	if gotKey != "secret" {
		t.Fatalf("X-Api-Key = %q, want secret", gotKey)
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUserAgent, defaultUserAgent)
	}
}

func TestRestClient_Failures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/server/info":
			http.Error(w, "boom", http.StatusServiceUnavailable)
		case "/access/oneshot_token":
			_, _ = w.Write([]byte(`{"result": null}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewRestClient(endpointFor(t, server.URL), "")
	if err != nil {
		t.Fatalf("NewRestClient returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := c.ServerInfo(ctx); err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("ServerInfo error = %v, want status 503", err)
	}
	if _, err := c.OneshotToken(ctx); err == nil || !strings.Contains(err.Error(), "empty result") {
		t.Fatalf("OneshotToken error = %v, want empty result", err)
	}
}
