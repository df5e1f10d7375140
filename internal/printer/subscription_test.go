package printer

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func TestSubscriptionSpec_AddDedupesAndKeepsOrder(t *testing.T) {
	var s SubscriptionSpec
	s.Add("b", "x", "y")
	s.Add("a", "z")
	s.Add("b", "y", "w")

	if got := s.Objects(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("Objects = %v", got)
	}
	if got := s.Fields("b"); !reflect.DeepEqual(got, []string{"x", "y", "w"}) {
		t.Fatalf("Fields(b) = %v", got)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `{"b":["x","y","w"],"a":["z"]}` {
		t.Fatalf("json = %s", raw)
	}
}

func TestSubscription_IncludesCoreAndDevices(t *testing.T) {
	p := New(nil, 0, nopLogger())
	p.Reinit(Info{}, sampleStatus())
	spec := p.Subscription()

	for _, core := range CoreObjects() {
		if len(spec.Fields(core)) == 0 {
			t.Fatalf("core object %q missing from subscription", core)
		}
	}
	checks := map[string]string{
		"extruder":                      "temperature",
		"heater_bed":                    "target",
		"temperature_sensor chamber":    "temperature",
		"temperature_fan exhaust":       "speed",
		"heater_fan hotend_fan":         "speed",
		"output_pin caselight":          "value",
		"neopixel strip":                "color_data",
		"filament_switch_sensor runout": "filament_detected",
		"extruder_stepper belt":         "pressure_advance",
	}
	for object, field := range checks {
		fields := spec.Fields(object)
		if !strings.Contains(strings.Join(fields, ","), field) {
			t.Fatalf("%s fields = %v, want %s", object, fields, field)
		}
	}
	if got := spec.Fields("webhooks"); !reflect.DeepEqual(got, []string{"state", "state_message"}) {
		t.Fatalf("webhooks fields = %v", got)
	}
}

func TestQueryObjects_DedupesCoreAndDiscovered(t *testing.T) {
	got := QueryObjects([]string{"extruder", "fan", "heater_bed"})
	seen := map[string]int{}
	for _, name := range got {
		seen[name]++
	}
	if seen["fan"] != 1 || seen["extruder"] != 1 || seen["webhooks"] != 1 || seen["configfile"] != 1 {
		t.Fatalf("QueryObjects = %v", got)
	}
}
