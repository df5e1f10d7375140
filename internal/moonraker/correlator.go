package moonraker

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/hotend/internal/dispatch"
)

// Callback receives a correlated response on the delivery queue.
type Callback func(Response)

// PushHandler receives a server notification on the delivery queue.
type PushHandler func(method string, params json.RawMessage)

// Sender writes one encoded frame to the channel.
type Sender interface {
	Send(data []byte) error
}

// PendingRequest is a request awaiting its reply.
type PendingRequest struct {
	ID       uint64
	Method   string
	Params   any
	Callback Callback
}

// ErrNotConnected is returned when no channel is attached.
var ErrNotConnected = errors.New("not connected")

const methodGcodeScript = "printer.gcode.script"

const heatingWarning = "Klipper is waiting for a heater to reach temperature; this command will run afterwards."

// Correlator assigns request ids, matches replies to callbacks and routes
// pushes. Ids are never reused for the life of the process.
type Correlator struct {
	queue   dispatch.Poster
	onPush  PushHandler
	waiting func() bool
	warn    func(string)
	log     zerolog.Logger

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]PendingRequest
	sender  Sender
}

// CorrelatorOptions wires the correlator's collaborators.
type CorrelatorOptions struct {
	Queue   dispatch.Poster
	OnPush  PushHandler
	Waiting func() bool
	Warn    func(string)
	Logger  zerolog.Logger
}

// NewCorrelator returns a detached correlator.
func NewCorrelator(opts CorrelatorOptions) *Correlator {
	return &Correlator{
		queue:   opts.Queue,
		onPush:  opts.OnPush,
		waiting: opts.Waiting,
		warn:    opts.Warn,
		log:     opts.Logger.With().Str("component", "rpc").Logger(),
		pending: make(map[uint64]PendingRequest),
	}
}

// Attach binds the correlator to a live channel.
func (r *Correlator) Attach(s Sender) {
	r.mu.Lock()
	r.sender = s
	r.mu.Unlock()
}

// Detach unbinds the channel and clears pending requests.
func (r *Correlator) Detach() {
	r.mu.Lock()
	r.sender = nil
	r.mu.Unlock()
	r.Clear()
}

// Clear drops every pending request. Their callbacks are never invoked.
func (r *Correlator) Clear() {
	r.mu.Lock()
	dropped := len(r.pending)
	r.pending = make(map[uint64]PendingRequest)
	r.mu.Unlock()
	if dropped > 0 {
		r.log.Debug().Int("dropped", dropped).Msg("pending requests cleared")
	}
}

// Attached reports whether a transport is currently attached.
func (r *Correlator) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sender != nil
}

// Pending reports the number of requests awaiting a reply.
func (r *Correlator) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Send encodes and writes a request. It reports false, without raising,
// when no channel is attached or the write fails.
func (r *Correlator) Send(method string, params any, cb Callback) bool {
	if params == nil {
		params = map[string]any{}
	}
	if !r.Attached() {
		r.log.Debug().Str("method", method).Msg("send skipped: not connected")
		return false
	}
	if method == methodGcodeScript && r.waiting != nil && r.waiting() {
		r.courtesyWarning()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sender == nil {
		r.log.Debug().Str("method", method).Msg("send skipped: detached")
		return false
	}
	r.nextID++
	id := r.nextID
	frame, err := json.Marshal(request{JSONRPC: jsonRPCVersion, Method: method, Params: params, ID: id})
	if err != nil {
		r.log.Warn().Err(err).Str("method", method).Msg("encode request")
		return false
	}
	if cb != nil {
		r.pending[id] = PendingRequest{ID: id, Method: method, Params: params, Callback: cb}
	}
	if err := r.sender.Send(frame); err != nil {
		delete(r.pending, id)
		r.log.Warn().Err(err).Str("method", method).Msg("send request")
		return false
	}
	r.log.Debug().Uint64("id", id).Str("method", method).Msg("request sent")
	return true
}

func (r *Correlator) courtesyWarning() {
	if r.warn == nil {
		return
	}
	if r.queue == nil {
		r.warn(heatingWarning)
		return
	}
	r.queue.Post(func() { r.warn(heatingWarning) })
}

// HandleMessage routes one inbound frame. Malformed frames and replies
// with unknown ids are dropped.
func (r *Correlator) HandleMessage(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.log.Warn().Err(err).Str("frame", truncate(string(raw), 120)).Msg("malformed message dropped")
		return
	}

	if id, ok := env.id(); ok {
		r.mu.Lock()
		p, found := r.pending[id]
		delete(r.pending, id)
		r.mu.Unlock()
		if !found {
			r.log.Debug().Uint64("id", id).Msg("reply without pending request dropped")
			return
		}
		resp := Response{ID: id, Result: env.Result, Error: env.Error, Method: p.Method, Params: p.Params}
		r.deliver(func() { p.Callback(resp) })
		return
	}

	if env.Method != "" {
		if r.onPush == nil {
			return
		}
		method, params := env.Method, env.pushParams()
		r.deliver(func() { r.onPush(method, params) })
		return
	}

	r.log.Debug().Str("frame", truncate(string(raw), 120)).Msg("unroutable message dropped")
}

func (r *Correlator) deliver(fn func()) {
	if r.queue == nil {
		fn()
		return
	}
	if !r.queue.Post(fn) {
		r.log.Debug().Msg("delivery queue stopped; message dropped")
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
