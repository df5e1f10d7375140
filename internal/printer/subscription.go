package printer

import (
	"bytes"
	"encoding/json"
)

// SubscriptionSpec is an ordered mapping of Klipper object names to the
// fields the console wants pushed.
type SubscriptionSpec struct {
	order  []string
	fields map[string][]string
}

// Add appends fields to an object, creating it if needed. Duplicate fields
// are ignored and insertion order is kept.
func (s *SubscriptionSpec) Add(object string, fields ...string) {
	if s.fields == nil {
		s.fields = make(map[string][]string)
	}
	existing, ok := s.fields[object]
	if !ok {
		s.order = append(s.order, object)
	}
	for _, f := range fields {
		dup := false
		for _, e := range existing {
			if e == f {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, f)
		}
	}
	s.fields[object] = existing
}

// Objects returns object names in insertion order.
func (s SubscriptionSpec) Objects() []string {
	return append([]string(nil), s.order...)
}

// Fields returns the fields subscribed for object.
func (s SubscriptionSpec) Fields(object string) []string {
	return append([]string(nil), s.fields[object]...)
}

// Len is the number of objects.
func (s SubscriptionSpec) Len() int { return len(s.order) }

// MarshalJSON renders the objects in insertion order.
func (s SubscriptionSpec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		fields := s.fields[name]
		if fields == nil {
			fields = []string{}
		}
		val, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// coreSubscription lists the firmware-level objects every console watches.
var coreSubscription = []struct {
	object string
	fields []string
}{
	{"webhooks", []string{"state", "state_message"}},
	{"print_stats", []string{"print_duration", "total_duration", "filament_used", "filename", "state", "message", "info"}},
	{"idle_timeout", []string{"state"}},
	{"pause_resume", []string{"is_paused"}},
	{"virtual_sdcard", []string{"file_position", "is_active", "progress"}},
	{"display_status", []string{"progress", "message"}},
	{"toolhead", []string{"homed_axes", "estimated_print_time", "print_time", "position", "extruder", "max_accel", "max_velocity", "square_corner_velocity"}},
	{"gcode_move", []string{"extrude_factor", "gcode_position", "homing_origin", "speed_factor", "speed"}},
	{"motion_report", []string{"live_position", "live_velocity", "live_extruder_velocity"}},
	{"exclude_object", []string{"current_object", "objects", "excluded_objects"}},
	{"firmware_retraction", []string{"retract_length", "retract_speed", "unretract_extra_length", "unretract_speed"}},
	{"bed_mesh", []string{"profile_name", "mesh_max", "mesh_min", "probed_matrix", "profiles"}},
	{"probe", []string{"last_query", "last_z_result"}},
	{"manual_probe", []string{"is_active", "z_position", "z_position_lower", "z_position_upper"}},
	{"configfile", []string{"config", "save_config_pending", "save_config_pending_items"}},
	{"fan", []string{"speed"}},
}

// CoreObjects returns the fixed firmware-level object names.
func CoreObjects() []string {
	out := make([]string, 0, len(coreSubscription))
	for _, c := range coreSubscription {
		out = append(out, c.object)
	}
	return out
}

// Subscription builds the spec from the core list and the devices found in
// the last Reinit.
func (p *Printer) Subscription() SubscriptionSpec {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var spec SubscriptionSpec
	for _, c := range coreSubscription {
		spec.Add(c.object, c.fields...)
	}
	for _, t := range p.tools {
		if isStepper(t) {
			spec.Add(t, "pressure_advance", "smooth_time", "motion_queue")
			continue
		}
		spec.Add(t, "target", "temperature", "power", "pressure_advance", "smooth_time")
	}
	for _, name := range p.sectionsMatching(isHeater) {
		spec.Add(name, "target", "temperature", "power")
	}
	for _, name := range p.sectionsMatching(isTempSensor) {
		spec.Add(name, "temperature")
	}
	for _, name := range p.sectionsMatching(isTempFan) {
		spec.Add(name, "target", "temperature", "speed")
	}
	for _, name := range p.sectionsMatching(isFan) {
		spec.Add(name, "speed")
	}
	for _, name := range p.sectionsMatching(isFilament) {
		spec.Add(name, "enabled", "filament_detected")
	}
	for _, name := range p.sectionsMatching(isOutputPin) {
		spec.Add(name, "value")
	}
	for _, name := range p.sectionsMatching(isLED) {
		spec.Add(name, "color_data")
	}
	return spec
}

// QueryObjects lists every object for the bulk query: the core list plus
// the discovered per-printer objects.
func QueryObjects(discovered []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range append(CoreObjects(), discovered...) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
