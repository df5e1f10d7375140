package printer

import (
	"sort"
	"strings"
)

// Device metric field names as reported by Klipper.
const (
	FieldTemperature = "temperature"
	FieldTarget      = "target"
	FieldPower       = "power"
	FieldSpeed       = "speed"
)

var (
	heaterPrefixes   = []string{"heater_generic "}
	fanPrefixes      = []string{"controller_fan ", "heater_fan ", "fan_generic "}
	ledPrefixes      = []string{"led ", "neopixel ", "dotstar ", "pca9533 ", "pca9632 "}
	filamentPrefixes = []string{"filament_switch_sensor ", "filament_motion_sensor "}
)

func hasPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// hidden reports whether a section was hidden by its author with a leading
// underscore on the object name.
func hidden(section string) bool {
	parts := strings.Fields(section)
	if len(parts) == 0 {
		return false
	}
	return strings.HasPrefix(parts[len(parts)-1], "_")
}

func isTool(name string) bool       { return strings.HasPrefix(name, "extruder") }
func isStepper(name string) bool    { return strings.HasPrefix(name, "extruder_stepper") }
func isHeater(name string) bool     { return name == "heater_bed" || hasPrefix(name, heaterPrefixes) }
func isTempSensor(name string) bool { return strings.HasPrefix(name, "temperature_sensor ") }
func isTempFan(name string) bool    { return strings.HasPrefix(name, "temperature_fan ") }
func isFan(name string) bool        { return name == "fan" || hasPrefix(name, fanPrefixes) }
func isOutputPin(name string) bool  { return strings.HasPrefix(name, "output_pin ") }
func isLED(name string) bool        { return hasPrefix(name, ledPrefixes) }
func isFilament(name string) bool   { return hasPrefix(name, filamentPrefixes) }

// deviceFields returns the metrics tracked in the device index for a
// config section, or nil when the section is not a temperature device.
func deviceFields(name string) []string {
	switch {
	case isTool(name) && !isStepper(name):
		return []string{FieldTemperature, FieldTarget, FieldPower}
	case isHeater(name):
		return []string{FieldTemperature, FieldTarget, FieldPower}
	case isTempSensor(name):
		return []string{FieldTemperature}
	case isTempFan(name):
		return []string{FieldTemperature, FieldTarget, FieldSpeed}
	}
	return nil
}

// Counts summarises the discovered hardware, excluding hidden sections.
type Counts struct {
	Extruders          int
	TemperatureDevices int
	Fans               int
	OutputPins         int
	LEDs               int
}

// DiscoverObjects picks the per-printer objects worth querying out of the
// names returned by printer.objects.list.
func DiscoverObjects(available []string) []string {
	var out []string
	for _, name := range available {
		if isTool(name) || isHeater(name) || isTempSensor(name) || isTempFan(name) ||
			isFan(name) || isOutputPin(name) || isLED(name) || isFilament(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// rebuildDevices derives tools, the device index and counts from the static
// configuration. Caller holds p.mu.
func (p *Printer) rebuildDevices() {
	sections := make([]string, 0, len(p.config))
	for name := range p.config {
		sections = append(sections, name)
	}
	sort.Strings(sections)

	p.tools = p.tools[:0]
	p.devices = make(map[string]map[string]float64)
	p.counts = Counts{}

	for _, name := range sections {
		if isTool(name) {
			p.tools = append(p.tools, name)
			p.counts.Extruders++
		}
		if fields := deviceFields(name); fields != nil {
			dev := make(map[string]float64, len(fields))
			for _, f := range fields {
				dev[f] = 0
			}
			p.devices[name] = dev
			if !isTool(name) && !hidden(name) {
				p.counts.TemperatureDevices++
			}
		}
		switch {
		case isFan(name) && !hidden(name):
			p.counts.Fans++
		case isOutputPin(name) && !hidden(name):
			p.counts.OutputPins++
		case isLED(name) && !hidden(name):
			p.counts.LEDs++
		}
	}
}

func (p *Printer) sectionsMatching(match func(string) bool) []string {
	var out []string
	for name := range p.config {
		if match(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Tools returns the configured extruders, including extruder steppers.
func (p *Printer) Tools() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.tools...)
}

// Heaters returns heater_bed and generic heaters.
func (p *Printer) Heaters() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sectionsMatching(isHeater)
}

// Fans returns part, controller, heater and generic fans.
func (p *Printer) Fans() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sectionsMatching(isFan)
}

// OutputPins returns configured output pins.
func (p *Printer) OutputPins() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sectionsMatching(isOutputPin)
}

// LEDs returns addressable LED strips.
func (p *Printer) LEDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sectionsMatching(isLED)
}

// FilamentSensors returns switch and motion filament sensors.
func (p *Printer) FilamentSensors() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sectionsMatching(isFilament)
}

// TemperatureDevices returns every device in the index, tools first.
func (p *Printer) TemperatureDevices() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.temperatureDevicesLocked()
}

func (p *Printer) temperatureDevicesLocked() []string {
	out := make([]string, 0, len(p.devices))
	for _, t := range p.tools {
		if _, ok := p.devices[t]; ok {
			out = append(out, t)
		}
	}
	rest := make([]string, 0, len(p.devices))
	for name := range p.devices {
		if !isTool(name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// DeviceStat returns a single metric from the device index.
func (p *Printer) DeviceStat(device, field string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.devices[device][field]
	return v, ok
}

// HasTarget reports whether the device accepts a target temperature.
func (p *Printer) HasTarget(device string) bool {
	_, ok := p.DeviceStat(device, FieldTarget)
	return ok
}

// Counts returns the discovered hardware counts.
func (p *Printer) Counts() Counts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts
}
