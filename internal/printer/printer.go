package printer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/hotend/internal/dispatch"
)

// Status is a set of Klipper objects and their fields, as returned by
// printer.objects.query and pushed by notify_status_update.
type Status map[string]map[string]any

// DecodeStatus decodes a status payload, skipping top-level members that are
// not objects (Moonraker mixes eventtime into some payloads).
func DecodeStatus(raw json.RawMessage) (Status, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	out := make(Status, len(members))
	for name, body := range members {
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
			continue
		}
		out[name] = fields
	}
	return out, nil
}

// Info is the identity reported by printer.info.
type Info struct {
	State           string
	StateMessage    string
	Hostname        string
	SoftwareVersion string
}

// PowerDevice is a Moonraker-controlled power switch.
type PowerDevice struct {
	Device string
	Status string
}

// Printer is the canonical in-process mirror of remote printer state.
//
// It is written only from the delivery queue. Readers on other goroutines
// are served through mu and copy-out accessors.
type Printer struct {
	mu   sync.RWMutex
	post dispatch.Poster
	log  zerolog.Logger

	info    Info
	config  map[string]map[string]any
	data    map[string]map[string]any
	devices map[string]map[string]float64
	tools   []string
	counts  Counts
	power   map[string]string

	state     State
	previous  State
	callbacks map[State]func()

	history     *History
	historySize int
	waiting     bool
	generation  int
}

// New returns a disconnected printer with empty maps. State callbacks are
// posted to post; a nil post runs them inline.
func New(post dispatch.Poster, historySize int, log zerolog.Logger) *Printer {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	callbacks := make(map[State]func(), len(States))
	for _, s := range States {
		callbacks[s] = nil
	}
	return &Printer{
		post:        post,
		log:         log.With().Str("component", "printer").Logger(),
		config:      make(map[string]map[string]any),
		data:        make(map[string]map[string]any),
		devices:     make(map[string]map[string]float64),
		power:       make(map[string]string),
		state:       StateDisconnected,
		previous:    StateDisconnected,
		callbacks:   callbacks,
		historySize: historySize,
	}
}

// OnState registers the callback fired when the printer transitions into s.
// Unknown states are ignored.
func (p *Printer) OnState(s State, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.callbacks[s]; ok {
		p.callbacks[s] = fn
	}
}

// Reinit replaces the static configuration wholesale from the configfile
// object in status, rebuilds the device index, seeds live data and
// re-evaluates the machine state.
func (p *Printer) Reinit(info Info, status Status) {
	p.mu.Lock()
	p.info = info
	p.config = extractConfig(status)
	p.data = make(map[string]map[string]any, len(status))
	for name, fields := range status {
		p.data[name] = cloneFields(fields)
	}
	p.rebuildDevices()
	p.seedDevices(status)
	p.waiting = false
	p.generation++
	next := evaluate(p.data)
	counts := p.counts
	p.mu.Unlock()

	p.log.Info().
		Str("hostname", info.Hostname).
		Str("klipper", info.SoftwareVersion).
		Int("extruders", counts.Extruders).
		Int("temperature_devices", counts.TemperatureDevices).
		Int("fans", counts.Fans).
		Int("output_pins", counts.OutputPins).
		Int("leds", counts.LEDs).
		Msg("printer reinitialized")

	p.ChangeState(next)
}

// Generation increments on every Reinit.
func (p *Printer) Generation() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

func extractConfig(status Status) map[string]map[string]any {
	out := make(map[string]map[string]any)
	sections, ok := status["configfile"]["config"].(map[string]any)
	if !ok {
		return out
	}
	for name, raw := range sections {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[name] = cloneFields(fields)
	}
	return out
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// seedDevices copies tracked metrics from status into the device index.
// Caller holds p.mu.
func (p *Printer) seedDevices(status Status) {
	for name, dev := range p.devices {
		fields, ok := status[name]
		if !ok {
			continue
		}
		for field := range dev {
			if v, ok := toFloat(fields[field]); ok {
				dev[field] = v
			}
		}
	}
}

// ProcessUpdate merges a delta field by field into the live data. Objects
// not in the delta and fields not in an object's delta are left untouched.
// configfile deltas are only accepted when they carry both save pending
// fields, and never replace the config itself.
func (p *Printer) ProcessUpdate(delta Status) {
	if len(delta) == 0 {
		return
	}
	p.mu.Lock()
	p.seedDevices(delta)
	for name, fields := range delta {
		if name == "configfile" {
			_, pending := fields["save_config_pending"]
			_, items := fields["save_config_pending_items"]
			if !pending || !items {
				continue
			}
		}
		obj, ok := p.data[name]
		if !ok {
			obj = make(map[string]any, len(fields))
			p.data[name] = obj
		}
		for k, v := range fields {
			if name == "configfile" && k == "config" {
				continue
			}
			obj[k] = v
		}
	}
	_, webhooks := delta["webhooks"]
	_, printStats := delta["print_stats"]
	_, idle := delta["idle_timeout"]
	var next State
	reevaluate := webhooks || printStats || idle
	if reevaluate {
		next = evaluate(p.data)
	}
	p.mu.Unlock()

	if reevaluate {
		p.ChangeState(next)
	}
}

// EvaluateState derives the machine state from the live data.
func (p *Printer) EvaluateState() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return evaluate(p.data)
}

// ChangeState moves the printer into s and schedules its callback once.
// States without a registered slot and repeated transitions are ignored.
func (p *Printer) ChangeState(s State) {
	p.mu.Lock()
	cb, known := p.callbacks[s]
	if !known || s == p.state {
		p.mu.Unlock()
		return
	}
	prev := p.state
	p.previous = prev
	p.state = s
	p.mu.Unlock()

	p.log.Debug().Str("from", string(prev)).Str("to", string(s)).Msg("state changed")
	if cb == nil {
		return
	}
	if p.post == nil {
		cb()
		return
	}
	p.post.Post(cb)
}

// State returns the current machine state.
func (p *Printer) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// PreviousState returns the state before the last transition.
func (p *Printer) PreviousState() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.previous
}

// Info returns the identity from the last Reinit.
func (p *Printer) Info() Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info
}

// Stat returns a live field.
func (p *Printer) Stat(object, field string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[object][field]
	return v, ok
}

// Object returns a copy of a live object.
func (p *Printer) Object(name string) (map[string]any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	obj, ok := p.data[name]
	if !ok {
		return nil, false
	}
	return cloneFields(obj), true
}

// ConfigSection returns a copy of a static configuration section.
func (p *Printer) ConfigSection(name string) (map[string]any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sec, ok := p.config[name]
	if !ok {
		return nil, false
	}
	return cloneFields(sec), true
}

// SetWaiting records whether Klipper is blocked on a heater wait.
func (p *Printer) SetWaiting(waiting bool) {
	p.mu.Lock()
	p.waiting = waiting
	p.mu.Unlock()
}

// Waiting reports whether a heater wait is in progress.
func (p *Printer) Waiting() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.waiting
}

// ConfigurePowerDevices replaces the power device map wholesale.
func (p *Printer) ConfigurePowerDevices(devices []PowerDevice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.power = make(map[string]string, len(devices))
	for _, d := range devices {
		p.power[d.Device] = normalizePower(d.Status)
	}
}

// UpdatePowerDevice records a status change for a known power device.
func (p *Printer) UpdatePowerDevice(device, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.power[device]; ok {
		p.power[device] = normalizePower(status)
	}
}

// PowerStatus returns the last known status of a power device.
func (p *Printer) PowerStatus(device string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.power[device]
	return s, ok
}

func normalizePower(status string) string {
	if status == "on" {
		return "on"
	}
	return "off"
}

// FanSpeed returns a fan's speed scaled by its configured max_power.
func (p *Printer) FanSpeed(fan string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fanSpeedLocked(fan)
}

func (p *Printer) fanSpeedLocked(fan string) float64 {
	speed, ok := toFloat(p.data[fan]["speed"])
	if !ok {
		return 0
	}
	if maxPower, ok := toFloat(p.config[fan]["max_power"]); ok && maxPower > 0 {
		speed /= maxPower
	}
	if speed > 1 {
		speed = 1
	}
	return speed
}

// toFloat accepts JSON numbers, booleans and numeric strings (configfile
// values arrive as strings).
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
