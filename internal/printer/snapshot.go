package printer

import "sort"

// Reading is one temperature device as shown to consumers.
type Reading struct {
	Name        string
	Temperature float64
	Target      float64
	Power       float64
	Speed       float64
	HasTarget   bool
	HasPower    bool
}

// Job describes the print job from print_stats and virtual_sdcard.
type Job struct {
	Filename      string
	State         string
	Message       string
	Progress      float64
	PrintDuration float64
	TotalDuration float64
	FilamentUsed  float64
}

// Fan is a fan speed normalised to 0..1.
type Fan struct {
	Name  string
	Speed float64
}

// Snapshot is an immutable view of the printer for presentation.
type Snapshot struct {
	State        State
	Previous     State
	Info         Info
	StateMessage string
	Readings     []Reading
	Fans         []Fan
	Power        []PowerDevice
	Job          Job
	HomedAxes    string
	Position     []float64
	Waiting      bool
	Counts       Counts
	Generation   int
}

// Snapshot copies out the current state.
func (p *Printer) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := Snapshot{
		State:      p.state,
		Previous:   p.previous,
		Info:       p.info,
		Waiting:    p.waiting,
		Counts:     p.counts,
		Generation: p.generation,
	}
	snap.StateMessage, _ = p.data["webhooks"]["state_message"].(string)

	for _, name := range p.temperatureDevicesLocked() {
		if hidden(name) {
			continue
		}
		dev := p.devices[name]
		r := Reading{Name: name}
		r.Temperature = dev[FieldTemperature]
		r.Target, r.HasTarget = dev[FieldTarget]
		r.Power, r.HasPower = dev[FieldPower]
		r.Speed = dev[FieldSpeed]
		snap.Readings = append(snap.Readings, r)
	}

	for _, name := range p.sectionsMatching(isFan) {
		if hidden(name) {
			continue
		}
		snap.Fans = append(snap.Fans, Fan{Name: name, Speed: p.fanSpeedLocked(name)})
	}

	for _, name := range sortedKeys(p.power) {
		snap.Power = append(snap.Power, PowerDevice{Device: name, Status: p.power[name]})
	}

	stats := p.data["print_stats"]
	snap.Job.Filename, _ = stats["filename"].(string)
	snap.Job.State, _ = stats["state"].(string)
	snap.Job.Message, _ = stats["message"].(string)
	snap.Job.PrintDuration, _ = toFloat(stats["print_duration"])
	snap.Job.TotalDuration, _ = toFloat(stats["total_duration"])
	snap.Job.FilamentUsed, _ = toFloat(stats["filament_used"])
	if v, ok := toFloat(p.data["virtual_sdcard"]["progress"]); ok {
		snap.Job.Progress = v
	} else if v, ok := toFloat(p.data["display_status"]["progress"]); ok {
		snap.Job.Progress = v
	}

	snap.HomedAxes, _ = p.data["toolhead"]["homed_axes"].(string)
	if pos, ok := p.data["toolhead"]["position"].([]any); ok {
		for _, v := range pos {
			f, _ := toFloat(v)
			snap.Position = append(snap.Position, f)
		}
	}
	return snap
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
