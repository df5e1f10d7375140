package moonraker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Handshaker performs the pre-channel HTTP calls.
// This interface is implemented by *RestClient and can be used for testing.
type Handshaker interface {
	ServerInfo(ctx context.Context) (*ServerInfo, error)
	OneshotToken(ctx context.Context) (string, error)
}

// Ensure RestClient implements Handshaker at compile time.
var _ Handshaker = (*RestClient)(nil)

// RestClient talks to the Moonraker HTTP API.
type RestClient struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	apiKey    string
}

const (
	defaultHost      = "127.0.0.1"
	defaultPort      = 7125
	defaultUserAgent = "hotend/0.1"
	requestTimeout   = 5 * time.Second
)

// DefaultSecurePorts are the ports assumed to serve TLS.
var DefaultSecurePorts = []int{443, 7130}

// Endpoint locates a Moonraker instance.
type Endpoint struct {
	Host        string
	Port        int
	RoutePrefix string
	SecurePorts []int
}

func (e Endpoint) normalized() Endpoint {
	out := e
	out.Host = strings.TrimSpace(out.Host)
	if out.Host == "" {
		out.Host = defaultHost
	}
	if out.Port <= 0 {
		out.Port = defaultPort
	}
	out.RoutePrefix = strings.Trim(strings.TrimSpace(out.RoutePrefix), "/")
	if out.SecurePorts == nil {
		out.SecurePorts = DefaultSecurePorts
	}
	return out
}

// Secure reports whether the endpoint port is in the secure port set.
func (e Endpoint) Secure() bool {
	n := e.normalized()
	for _, p := range n.SecurePorts {
		if p == n.Port {
			return true
		}
	}
	return false
}

func (e Endpoint) hostPort() string {
	n := e.normalized()
	return n.Host + ":" + strconv.Itoa(n.Port)
}

func (e Endpoint) path(suffix string) string {
	n := e.normalized()
	if n.RoutePrefix == "" {
		return suffix
	}
	return "/" + n.RoutePrefix + suffix
}

// HTTPURL returns the REST base URL.
func (e Endpoint) HTTPURL() string {
	scheme := "http"
	if e.Secure() {
		scheme = "https"
	}
	return scheme + "://" + e.hostPort() + e.path("")
}

// WebsocketURL returns the channel URL carrying a oneshot token.
func (e Endpoint) WebsocketURL(token string) string {
	u := url.URL{
		Scheme: "ws",
		Host:   e.hostPort(),
		Path:   e.path("/websocket"),
	}
	if e.Secure() {
		u.Scheme = "wss"
	}
	if token != "" {
		u.RawQuery = url.Values{"token": []string{token}}.Encode()
	}
	return u.String()
}

// NewRestClient builds a RestClient for the endpoint. apiKey may be empty.
func NewRestClient(endpoint Endpoint, apiKey string) (*RestClient, error) {
	base, err := parseBaseURL(endpoint.HTTPURL())
	if err != nil {
		return nil, err
	}
	return &RestClient{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		apiKey:    strings.TrimSpace(apiKey),
	}, nil
}

// ServerInfo probes Moonraker liveness.
func (c *RestClient) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload ServerInfo
	if err := c.do(ctx, http.MethodGet, "/server/info", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// OneshotToken requests a short-lived token for the websocket URL.
func (c *RestClient) OneshotToken(ctx context.Context) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	var token string
	if err := c.do(ctx, http.MethodGet, "/access/oneshot_token", &token); err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("empty oneshot token")
	}
	return token, nil
}

func (c *RestClient) do(ctx context.Context, method, path string, dest any) error {
	rel := &url.URL{Path: strings.TrimPrefix(path, "/")}
	return c.doURL(ctx, method, rel, dest)
}

func (c *RestClient) doURL(ctx context.Context, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api %s returned status %d", rel.String(), resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return fmt.Errorf("api %s returned an empty result", rel.String())
	}
	if err := json.Unmarshal(envelope.Result, dest); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse moonraker url %q: %w", raw, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
