package printer

import "sort"

// DefaultHistorySize is the number of samples kept per metric, one per
// second, matching Moonraker's default temperature_store_size.
const DefaultHistorySize = 1200

// metricFields maps temperature store series names to device index fields.
var metricFields = map[string]string{
	"temperatures": FieldTemperature,
	"targets":      FieldTarget,
	"powers":       FieldPower,
	"speeds":       FieldSpeed,
}

// MetricFor returns the history series name for a device field.
func MetricFor(field string) string {
	for metric, f := range metricFields {
		if f == field {
			return metric
		}
	}
	return ""
}

// Ring is a fixed-length sample sequence. Pushing drops the oldest sample,
// so its length always equals its capacity.
type Ring struct {
	values []float64
	head   int
}

// NewRing returns a ring of the given capacity seeded with the most recent
// samples of seed, zero-filled at the front when seed is shorter.
func NewRing(capacity int, seed []float64) *Ring {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	values := make([]float64, capacity)
	if len(seed) > capacity {
		seed = seed[len(seed)-capacity:]
	}
	copy(values[capacity-len(seed):], seed)
	return &Ring{values: values}
}

// Len is the ring capacity.
func (r *Ring) Len() int { return len(r.values) }

// Push drops the oldest sample and appends v.
func (r *Ring) Push(v float64) {
	r.values[r.head] = v
	r.head = (r.head + 1) % len(r.values)
}

// Last returns the newest n samples oldest-first; n <= 0 or n >= Len
// returns all of them.
func (r *Ring) Last(n int) []float64 {
	size := len(r.values)
	if n <= 0 || n > size {
		n = size
	}
	out := make([]float64, n)
	start := (r.head + size - n) % size
	for i := 0; i < n; i++ {
		out[i] = r.values[(start+i)%size]
	}
	return out
}

// History holds one ring per device per metric.
type History struct {
	size  int
	rings map[string]map[string]*Ring
}

func newHistory(size int) *History {
	return &History{size: size, rings: make(map[string]map[string]*Ring)}
}

// Devices returns the tracked devices in name order.
func (h *History) Devices() []string {
	out := make([]string, 0, len(h.rings))
	for name := range h.rings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (h *History) sameDevices(want map[string][]string) bool {
	if len(h.rings) != len(want) {
		return false
	}
	for name := range want {
		if _, ok := h.rings[name]; !ok {
			return false
		}
	}
	return true
}

// sample pushes one value into every ring. read returns the current value
// of a device field; unknown values are recorded as zero.
func (h *History) sample(read func(device, field string) (float64, bool)) {
	for device, metrics := range h.rings {
		for metric, ring := range metrics {
			v, ok := read(device, metricFields[metric])
			if !ok {
				v = 0
			}
			ring.Push(v)
		}
	}
}

// wantedMetrics lists the history series each indexed device should have.
// Caller holds p.mu.
func (p *Printer) wantedMetrics() map[string][]string {
	want := make(map[string][]string, len(p.devices))
	for name, dev := range p.devices {
		metrics := make([]string, 0, len(dev))
		for field := range dev {
			if m := MetricFor(field); m != "" {
				metrics = append(metrics, m)
			}
		}
		sort.Strings(metrics)
		want[name] = metrics
	}
	return want
}

// InitHistory allocates the telemetry rings from the device index, seeding
// them from Moonraker's temperature store when available. size overrides the
// capacity when positive.
//
// A different device set (or capacity) discards and rebuilds every ring.
// Otherwise existing rings are kept, rings for new metrics are added and
// rings for dropped metrics are removed.
func (p *Printer) InitHistory(remote map[string]map[string][]float64, size int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size > 0 {
		p.historySize = size
	}
	want := p.wantedMetrics()

	if p.history == nil || p.history.size != p.historySize || !p.history.sameDevices(want) {
		if p.history != nil {
			p.log.Debug().Msg("temperature devices changed, rebuilding history")
		}
		h := newHistory(p.historySize)
		for device, metrics := range want {
			h.rings[device] = make(map[string]*Ring, len(metrics))
			for _, m := range metrics {
				h.rings[device][m] = NewRing(h.size, remote[device][m])
			}
		}
		p.history = h
		return
	}

	for device, metrics := range want {
		rings := p.history.rings[device]
		keep := make(map[string]bool, len(metrics))
		for _, m := range metrics {
			keep[m] = true
			if _, ok := rings[m]; !ok {
				rings[m] = NewRing(p.history.size, remote[device][m])
			}
		}
		for m := range rings {
			if !keep[m] {
				delete(rings, m)
			}
		}
	}
}

// SampleHistory appends the current device readings to every ring.
func (p *Printer) SampleHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.history == nil {
		return
	}
	p.history.sample(func(device, field string) (float64, bool) {
		v, ok := p.devices[device][field]
		return v, ok
	})
}

// History returns the newest n samples of a device metric (0 means all).
func (p *Printer) History(device, metric string, n int) ([]float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.history == nil {
		return nil, false
	}
	ring, ok := p.history.rings[device][metric]
	if !ok {
		return nil, false
	}
	return ring.Last(n), true
}

// DeviceHistory returns the newest n samples of every metric of a device.
func (p *Printer) DeviceHistory(device string, n int) (map[string][]float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.history == nil {
		return nil, false
	}
	rings, ok := p.history.rings[device]
	if !ok {
		return nil, false
	}
	out := make(map[string][]float64, len(rings))
	for m, ring := range rings {
		out[m] = ring.Last(n)
	}
	return out, true
}

// HistoryDevices returns the devices with telemetry rings.
func (p *Printer) HistoryDevices() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.history == nil {
		return nil
	}
	return p.history.Devices()
}

// HistorySize returns the configured ring capacity.
func (p *Printer) HistorySize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.historySize
}
