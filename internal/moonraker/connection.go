package moonraker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/five82/hotend/internal/dispatch"
)

// ConnState is the lifecycle state of the channel.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Open
	Closing
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Listener receives lifecycle events on the delivery queue.
type Listener interface {
	// Connected fires when the channel opens.
	Connected(session string)
	// Disconnected fires when the remote side drops an open channel.
	Disconnected(reason string)
	// ConnectFailed fires after each failed attempt.
	ConnectFailed(attempt int, err error)
	// Unreachable fires once the retry budget is spent.
	Unreachable(attempts int, err error)
}

const (
	DefaultMaxRetries       = 4
	DefaultRetryDelay       = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// Options configures a Client. Zero values use defaults.
type Options struct {
	Endpoint         Endpoint
	APIKey           string
	MaxRetries       int
	RetryDelay       time.Duration
	HandshakeTimeout time.Duration

	Queue    dispatch.Scheduler
	Listener Listener
	OnPush   PushHandler
	// Waiting reports whether Klipper is blocked on a heater.
	Waiting func() bool
	// Warn shows a transient warning to the user.
	Warn func(string)

	// Handshaker overrides the REST client used before dialing.
	Handshaker Handshaker
	Logger     zerolog.Logger
}

// Client owns the Moonraker channel: handshake, reconnect policy and
// request correlation. All callbacks run on the delivery queue.
type Client struct {
	endpoint   Endpoint
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	handshaker Handshaker
	dialer     *websocket.Dialer
	queue      dispatch.Scheduler
	listener   Listener
	rpc        *Correlator
	log        zerolog.Logger

	mu         sync.Mutex
	state      ConnState
	retries    int
	attempting bool
	epoch      uint64
	transport  *wsTransport
	session    string
	timer      *dispatch.Timer
	lastErr    error
}

// NewClient builds a Client. It does not connect.
func NewClient(opts Options) (*Client, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("moonraker client requires a delivery queue")
	}
	log := opts.Logger.With().Str("component", "moonraker").Logger()
	endpoint := opts.Endpoint.normalized()

	hs := opts.Handshaker
	if hs == nil {
		rest, err := NewRestClient(endpoint, opts.APIKey)
		if err != nil {
			return nil, err
		}
		hs = rest
	}

	c := &Client{
		endpoint:   endpoint,
		apiKey:     opts.APIKey,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		timeout:    opts.HandshakeTimeout,
		handshaker: hs,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		queue:    opts.Queue,
		listener: opts.Listener,
		log:      log,
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if c.timeout <= 0 {
		c.timeout = DefaultHandshakeTimeout
	}
	c.rpc = NewCorrelator(CorrelatorOptions{
		Queue:   opts.Queue,
		OnPush:  opts.OnPush,
		Waiting: opts.Waiting,
		Warn:    opts.Warn,
		Logger:  opts.Logger,
	})
	return c, nil
}

// Endpoint returns the normalized endpoint.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// State returns the current lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Retries returns the consecutive failed-attempt counter.
func (c *Client) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// Session returns the id of the open channel, or "".
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// LastError returns the most recent handshake failure.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Pending returns the number of requests awaiting a reply.
func (c *Client) Pending() int { return c.rpc.Pending() }

// Connect starts the handshake. It is a no-op unless disconnected. A
// handshake left over from before Close hands off to a fresh attempt
// when it finishes.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return
	}
	c.state = Connecting
	c.retries = 0
	epoch := c.epoch
	busy := c.attempting
	c.mu.Unlock()
	if !busy {
		c.startAttempt(epoch)
	}
}

// Retry resets the budget and attempts immediately. It is ignored while
// the channel is open.
func (c *Client) Retry() {
	c.mu.Lock()
	if c.state == Open || c.state == Closing {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.stopTimerLocked()
	c.retries = 0
	c.state = Connecting
	c.retries = 0
	epoch := c.epoch
	busy := c.attempting
	c.mu.Unlock()
	if !busy {
		c.startAttempt(epoch)
	}
}

// Close shuts the channel down without raising a disconnect notification.
func (c *Client) Close() {
	c.mu.Lock()
	c.epoch++
	c.stopTimerLocked()
	c.rpc.Detach()
	t := c.transport
	if t == nil {
		c.state = Disconnected
		c.session = ""
		c.mu.Unlock()
		return
	}
	c.state = Closing
	c.mu.Unlock()

	if err := t.Close(); err != nil {
		c.log.Debug().Err(err).Msg("close websocket")
	}

	c.mu.Lock()
	if c.transport == t {
		c.transport = nil
	}
	c.state = Disconnected
	c.session = ""
	c.mu.Unlock()
	c.log.Info().Msg("connection closed")
}

// Send issues a request. It reports false when the channel is not open.
func (c *Client) Send(method string, params any, cb Callback) bool {
	return c.rpc.Send(method, params, cb)
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) startAttempt(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.attempting || c.state != Connecting {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.attempting = true
	c.retries++
	attempt := c.retries
	c.mu.Unlock()

	c.log.Info().Int("attempt", attempt).Str("url", c.endpoint.HTTPURL()).Msg("connecting")
	go c.attempt(epoch, attempt)
}

func (c *Client) attempt(epoch uint64, attempt int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	t, err := c.handshake(ctx)
	cancel()

	c.mu.Lock()
	c.attempting = false
	if epoch != c.epoch || c.state != Connecting {
		current, state := c.epoch, c.state
		c.mu.Unlock()
		if t != nil {
			_ = t.Close()
		}
		if state == Connecting {
			c.startAttempt(current)
		}
		return
	}

	if err != nil {
		c.lastErr = err
		exhausted := c.retries > c.maxRetries
		if exhausted {
			c.state = Disconnected
		} else {
			c.timer = c.queue.After(c.retryDelay, func() { c.startAttempt(epoch) })
		}
		c.mu.Unlock()

		c.log.Warn().Err(err).Int("attempt", attempt).Bool("exhausted", exhausted).Msg("connect failed")
		c.emit(func(l Listener) { l.ConnectFailed(attempt, err) })
		if exhausted {
			c.emit(func(l Listener) { l.Unreachable(attempt, err) })
		}
		return
	}

	session := uuid.NewString()
	c.transport = t
	c.state = Open
	c.retries = 0
	c.lastErr = nil
	c.session = session
	c.rpc.Attach(t)
	c.mu.Unlock()

	c.log.Info().Str("session", session).Msg("connected")
	c.emit(func(l Listener) { l.Connected(session) })
	go t.readLoop(c.rpc.HandleMessage, func(err error) { c.handleClose(t, err) })
}

func (c *Client) handshake(ctx context.Context) (*wsTransport, error) {
	info, err := c.handshaker.ServerInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("server info: %w", err)
	}
	c.log.Debug().
		Str("moonraker", info.MoonrakerVersion).
		Str("klippy_state", info.KlippyState).
		Msg("server info")

	token, err := c.handshaker.OneshotToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("oneshot token: %w", err)
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("X-Api-Key", c.apiKey)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint.WebsocketURL(token), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return newWSTransport(conn, c.log), nil
}

func (c *Client) handleClose(t *wsTransport, err error) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	c.session = ""
	c.rpc.Detach()
	if c.state == Closing {
		c.state = Disconnected
		c.mu.Unlock()
		return
	}
	c.state = Connecting
	c.retries = 0
	epoch := c.epoch
	c.timer = c.queue.After(c.retryDelay, func() { c.startAttempt(epoch) })
	c.mu.Unlock()

	reason := closeReason(err)
	c.log.Warn().Str("reason", reason).Msg("connection lost")
	c.emit(func(l Listener) { l.Disconnected(reason) })
}

func (c *Client) emit(fn func(Listener)) {
	if c.listener == nil {
		return
	}
	l := c.listener
	c.queue.Post(func() { fn(l) })
}
