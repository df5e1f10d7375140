package app

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/hotend/internal/config"
	"github.com/five82/hotend/internal/dispatch"
	"github.com/five82/hotend/internal/moonraker"
	"github.com/five82/hotend/internal/notify"
	"github.com/five82/hotend/internal/printer"
)

type call struct {
	method string
	args   []any
	cb     moonraker.Callback
}

type fakeMoonraker struct {
	open    bool
	retried int
	calls   []call
}

func (f *fakeMoonraker) record(method string, cb moonraker.Callback, args ...any) bool {
	if !f.open {
		return false
	}
	f.calls = append(f.calls, call{method: method, args: args, cb: cb})
	return true
}

func (f *fakeMoonraker) Connect() {}
func (f *fakeMoonraker) Retry()   { f.retried++ }
func (f *fakeMoonraker) Close()   {}

func (f *fakeMoonraker) State() moonraker.ConnState {
	if f.open {
		return moonraker.Open
	}
	return moonraker.Disconnected
}

func (f *fakeMoonraker) Session() string { return "session-1" }

func (f *fakeMoonraker) Identify(name, version string, cb moonraker.Callback) bool {
	return f.record(moonraker.MethodIdentify, cb, name, version)
}
func (f *fakeMoonraker) PrinterInfo(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodPrinterInfo, cb)
}
func (f *fakeMoonraker) ServerConfig(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodServerConfig, cb)
}
func (f *fakeMoonraker) TemperatureStore(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodTemperatureStore, cb)
}
func (f *fakeMoonraker) ObjectsList(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodObjectsList, cb)
}
func (f *fakeMoonraker) ObjectsQuery(objects []string, cb moonraker.Callback) bool {
	return f.record(moonraker.MethodObjectsQuery, cb, objects)
}
func (f *fakeMoonraker) Subscribe(objects json.Marshaler, cb moonraker.Callback) bool {
	return f.record(moonraker.MethodObjectsSubscribe, cb, objects)
}
func (f *fakeMoonraker) PowerDevices(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodPowerDevices, cb)
}
func (f *fakeMoonraker) GcodeScript(script string, cb moonraker.Callback) bool {
	return f.record(moonraker.MethodGcodeScript, cb, script)
}
func (f *fakeMoonraker) EmergencyStop(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodEmergencyStop, cb)
}
func (f *fakeMoonraker) FirmwareRestart(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodFirmwareRestart, cb)
}
func (f *fakeMoonraker) PrintPause(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodPrintPause, cb)
}
func (f *fakeMoonraker) PrintResume(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodPrintResume, cb)
}
func (f *fakeMoonraker) PrintCancel(cb moonraker.Callback) bool {
	return f.record(moonraker.MethodPrintCancel, cb)
}
func (f *fakeMoonraker) PowerOn(device string, cb moonraker.Callback) bool {
	return f.record(moonraker.MethodPowerOn, cb, device)
}
func (f *fakeMoonraker) PowerOff(device string, cb moonraker.Callback) bool {
	return f.record(moonraker.MethodPowerOff, cb, device)
}

func (f *fakeMoonraker) count(method string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeMoonraker) last(t *testing.T, method string) call {
	t.Helper()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i]
		}
	}
	t.Fatalf("no %s call recorded", method)
	return call{}
}

// reply answers the most recent call to method with result.
func (f *fakeMoonraker) reply(t *testing.T, method string, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal %s result: %v", method, err)
	}
	c := f.last(t, method)
	if c.cb != nil {
		c.cb(moonraker.Response{Result: raw, Method: method})
	}
}

func (f *fakeMoonraker) fail(t *testing.T, method, message string) {
	t.Helper()
	c := f.last(t, method)
	if c.cb != nil {
		c.cb(moonraker.Response{Method: method, Error: &moonraker.RPCError{Code: 400, Message: message}})
	}
}

type delayed struct {
	d  time.Duration
	fn func()
}

// inlineScheduler runs posted tasks immediately and records timers.
type inlineScheduler struct {
	after   []delayed
	every   []delayed
	stopped int
}

func (s *inlineScheduler) Post(fn func()) bool {
	fn()
	return true
}

func (s *inlineScheduler) After(d time.Duration, fn func()) *dispatch.Timer {
	s.after = append(s.after, delayed{d: d, fn: fn})
	return &dispatch.Timer{}
}

func (s *inlineScheduler) Every(d time.Duration, fn func()) func() {
	s.every = append(s.every, delayed{d: d, fn: fn})
	return func() { s.stopped++ }
}

func newTestApp(t *testing.T) (*App, *fakeMoonraker, *inlineScheduler) {
	t.Helper()
	cfg := config.Default()
	cfg.HistorySize = 10
	sched := &inlineScheduler{}
	a := newApp(cfg, "test", sched, zerolog.New(io.Discard))
	fake := &fakeMoonraker{open: true}
	a.client = fake
	return a, fake, sched
}

var readyInfo = moonraker.PrinterInfo{
	State:           "ready",
	Hostname:        "voron",
	SoftwareVersion: "v0.12.0",
}

var queryStatus = map[string]any{
	"eventtime": 12.5,
	"status": map[string]any{
		"webhooks":    map[string]any{"state": "ready", "state_message": "Printer is ready"},
		"print_stats": map[string]any{"state": "standby", "filename": ""},
		"extruder":    map[string]any{"temperature": 24.5, "target": 0, "power": 0},
		"heater_bed":  map[string]any{"temperature": 23.0, "target": 0, "power": 0},
		"configfile": map[string]any{
			"config": map[string]any{
				"extruder":   map[string]any{"heater_pin": "PA1"},
				"heater_bed": map[string]any{"heater_pin": "PA2"},
				"fan":        map[string]any{"pin": "PA3"},
			},
		},
	},
}

// runInit drives a full initialization chain through a ready printer.
func runInit(t *testing.T, a *App, fake *fakeMoonraker) {
	t.Helper()
	a.Connected("session-1")
	fake.reply(t, moonraker.MethodIdentify, map[string]any{"connection_id": 7})
	fake.reply(t, moonraker.MethodPrinterInfo, readyInfo)
	fake.reply(t, moonraker.MethodObjectsList, moonraker.ObjectsList{
		Objects: []string{"webhooks", "extruder", "heater_bed", "fan", "gcode_macro START"},
	})
	fake.reply(t, moonraker.MethodObjectsQuery, queryStatus)
	fake.reply(t, moonraker.MethodObjectsSubscribe, map[string]any{
		"eventtime": 13.0,
		"status":    map[string]any{"extruder": map[string]any{"temperature": 25.0}},
	})
	fake.reply(t, moonraker.MethodServerConfig, map[string]any{
		"config": map[string]any{"data_store": map[string]any{"temperature_store_size": 5}},
	})
	fake.reply(t, moonraker.MethodTemperatureStore, map[string]any{
		"extruder": map[string]any{"temperatures": []float64{21, 22, 23}},
	})
	fake.reply(t, moonraker.MethodPowerDevices, moonraker.PowerDeviceList{
		Devices: []moonraker.PowerDevice{{Device: "printer", Status: "on"}},
	})
}

func TestInitChainReachesReady(t *testing.T) {
	a, fake, sched := newTestApp(t)
	runInit(t, a, fake)

	if got := a.printer.State(); got != printer.StateReady {
		t.Fatalf("state = %v, want %v", got, printer.StateReady)
	}
	if got := a.printer.Info().Hostname; got != "voron" {
		t.Fatalf("hostname = %q, want voron", got)
	}
	query := fake.last(t, moonraker.MethodObjectsQuery).args[0].([]string)
	if !containsString(query, "extruder") || containsString(query, "gcode_macro START") {
		t.Fatalf("query objects = %v", query)
	}
	if v, _ := a.printer.DeviceStat("extruder", printer.FieldTemperature); v != 25 {
		t.Fatalf("extruder temperature = %v, want 25 from subscribe reply", v)
	}
	if a.printer.HistorySize() != 5 {
		t.Fatalf("history size = %d, want server size 5", a.printer.HistorySize())
	}
	series, ok := a.printer.History("extruder", "temperatures", 0)
	if !ok || len(series) != 5 || series[4] != 23 {
		t.Fatalf("extruder history = %v (ok=%v), want seeded ring ending in 23", series, ok)
	}
	if len(sched.every) != 1 || sched.every[0].d != samplePeriod {
		t.Fatalf("sampler = %+v, want one %v ticker", sched.every, samplePeriod)
	}
	if status, ok := a.printer.PowerStatus("printer"); !ok || status != "on" {
		t.Fatalf("power printer = %q (ok=%v), want on", status, ok)
	}
}

func TestKlippyNotReadyRetries(t *testing.T) {
	a, fake, sched := newTestApp(t)
	a.Connected("session-1")
	fake.reply(t, moonraker.MethodPrinterInfo, moonraker.PrinterInfo{State: "startup", StateMessage: "Starting"})

	if got := a.printer.State(); got != printer.StateStartup {
		t.Fatalf("state = %v, want startup", got)
	}
	if fake.count(moonraker.MethodObjectsList) != 0 {
		t.Fatalf("objects list requested before klippy was ready")
	}
	if len(sched.after) != 1 || sched.after[0].d != klippyRetryDelay {
		t.Fatalf("timers = %+v, want one %v retry", sched.after, klippyRetryDelay)
	}

	sched.after[0].fn()
	if got := fake.count(moonraker.MethodPrinterInfo); got != 2 {
		t.Fatalf("printer.info calls = %d, want 2", got)
	}
	fake.reply(t, moonraker.MethodPrinterInfo, readyInfo)
	if fake.count(moonraker.MethodObjectsList) != 1 {
		t.Fatalf("objects list not requested once klippy was ready")
	}
}

func TestStaleChainIsDropped(t *testing.T) {
	a, fake, _ := newTestApp(t)
	a.Connected("session-1")
	a.Disconnected("connection reset")
	fake.reply(t, moonraker.MethodPrinterInfo, readyInfo)

	if fake.count(moonraker.MethodObjectsList) != 0 {
		t.Fatalf("stale printer.info reply continued the chain")
	}
	if got := a.printer.State(); got != printer.StateDisconnected {
		t.Fatalf("state = %v, want disconnected", got)
	}
	n, ok := a.notes.Latest()
	if !ok || n.Level != notify.Warning || !strings.Contains(n.Message, "connection reset") {
		t.Fatalf("latest notification = %+v, want disconnect warning", n)
	}
}

func TestReconnectRebuildsDeviceIndex(t *testing.T) {
	a, fake, _ := newTestApp(t)
	runInit(t, a, fake)
	if _, ok := a.printer.DeviceStat("heater_bed", printer.FieldTemperature); !ok {
		t.Fatalf("heater_bed missing after first init")
	}

	a.Disconnected("connection reset")
	a.Connected("session-2")
	fake.reply(t, moonraker.MethodPrinterInfo, readyInfo)
	fake.reply(t, moonraker.MethodObjectsList, moonraker.ObjectsList{
		Objects: []string{"webhooks", "extruder", "temperature_sensor chamber"},
	})
	fake.reply(t, moonraker.MethodObjectsQuery, map[string]any{
		"eventtime": 40.0,
		"status": map[string]any{
			"webhooks":                   map[string]any{"state": "ready"},
			"print_stats":                map[string]any{"state": "standby"},
			"extruder":                   map[string]any{"temperature": 30.0, "target": 0},
			"temperature_sensor chamber": map[string]any{"temperature": 28.0},
			"configfile": map[string]any{
				"config": map[string]any{
					"extruder":                   map[string]any{"heater_pin": "PA1"},
					"temperature_sensor chamber": map[string]any{"sensor_type": "ATC Semitec 104GT-2"},
				},
			},
		},
	})

	if _, ok := a.printer.DeviceStat("heater_bed", printer.FieldTemperature); ok {
		t.Fatalf("heater_bed survived a reinit without it in configfile")
	}
	if v, ok := a.printer.DeviceStat("temperature_sensor chamber", printer.FieldTemperature); !ok || v != 28 {
		t.Fatalf("chamber = %v (ok=%v), want 28", v, ok)
	}
	if got := a.printer.Generation(); got != 2 {
		t.Fatalf("generation = %d, want 2", got)
	}
	if got := a.printer.State(); got != printer.StateReady {
		t.Fatalf("state = %v, want ready", got)
	}
}

func TestKlippyReadyPushReinitializes(t *testing.T) {
	a, fake, sched := newTestApp(t)
	runInit(t, a, fake)

	a.HandlePush("notify_klippy_shutdown", json.RawMessage(`{}`))
	if got := a.printer.State(); got != printer.StateShutdown {
		t.Fatalf("state = %v, want shutdown", got)
	}
	a.HandlePush("notify_status_update", json.RawMessage(`{"extruder":{"temperature":99}}`))
	if v, _ := a.printer.DeviceStat("extruder", printer.FieldTemperature); v == 99 {
		t.Fatalf("status update applied while shut down")
	}

	a.HandlePush("notify_klippy_ready", json.RawMessage(`{}`))
	if sched.stopped != 1 {
		t.Fatalf("sampler stops = %d, want 1", sched.stopped)
	}
	if got := fake.count(moonraker.MethodPrinterInfo); got != 2 {
		t.Fatalf("printer.info calls = %d, want 2", got)
	}
	if got := fake.count(moonraker.MethodIdentify); got != 1 {
		t.Fatalf("identify calls = %d, want 1", got)
	}
}

func TestStatusUpdateMerges(t *testing.T) {
	a, fake, _ := newTestApp(t)
	runInit(t, a, fake)

	a.HandlePush("notify_status_update", json.RawMessage(`{"print_stats":{"state":"printing","filename":"cube.gcode"}}`))
	if got := a.printer.State(); got != printer.StatePrinting {
		t.Fatalf("state = %v, want printing", got)
	}
	n, _ := a.notes.Latest()
	if n.Message != "Printing cube.gcode" {
		t.Fatalf("notification = %q, want Printing cube.gcode", n.Message)
	}
}

func TestPowerChanged(t *testing.T) {
	a, fake, _ := newTestApp(t)
	runInit(t, a, fake)

	a.HandlePush("notify_power_changed", json.RawMessage(`{"device":"printer","status":"off"}`))
	if status, _ := a.printer.PowerStatus("printer"); status != "off" {
		t.Fatalf("printer power = %q, want off", status)
	}

	before := fake.count(moonraker.MethodPowerDevices)
	a.HandlePush("notify_power_changed", json.RawMessage(`{"device":"lights","status":"on"}`))
	if got := fake.count(moonraker.MethodPowerDevices); got != before+1 {
		t.Fatalf("power device list requests = %d, want %d", got, before+1)
	}

	a.HandlePush("notify_power_changed", json.RawMessage(`{"devices":[{"device":"lights","status":"on"}]}`))
	if _, ok := a.printer.PowerStatus("printer"); ok {
		t.Fatalf("devices payload did not replace the map")
	}
	if status, _ := a.printer.PowerStatus("lights"); status != "on" {
		t.Fatalf("lights power = %q, want on", status)
	}
}

func TestGcodeResponse(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.HandlePush("notify_gcode_response", json.RawMessage(`"ok B:60.0 /60.0 T0:200.0 /200.0\necho: Probe triggered\n!! Move out of range"`))

	lines := a.console.Lines(0)
	if len(lines) != 2 {
		t.Fatalf("console lines = %+v, want 2 (temperature report skipped)", lines)
	}
	recent := a.notes.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("notifications = %+v, want 2", recent)
	}
	if recent[0].Level != notify.Error || recent[0].Message != "Move out of range" {
		t.Fatalf("newest notification = %+v, want error", recent[0])
	}
	if recent[1].Level != notify.Info || recent[1].Message != "Probe triggered" {
		t.Fatalf("older notification = %+v, want info", recent[1])
	}
}

func TestSendGcodeTracksHeaterWait(t *testing.T) {
	a, fake, _ := newTestApp(t)
	a.SendGcode("  M109 S210 ")

	if !a.printer.Waiting() {
		t.Fatalf("waiting flag not set for M109")
	}
	if got := fake.last(t, moonraker.MethodGcodeScript).args[0]; got != "M109 S210" {
		t.Fatalf("script = %v, want trimmed M109 S210", got)
	}
	fake.reply(t, moonraker.MethodGcodeScript, "ok")
	if a.printer.Waiting() {
		t.Fatalf("waiting flag still set after response")
	}

	a.SendGcode("G28")
	if a.printer.Waiting() {
		t.Fatalf("waiting flag set for G28")
	}
	lines := a.console.Lines(0)
	if len(lines) != 2 || lines[1].Text != "G28" {
		t.Fatalf("console = %+v, want both commands echoed", lines)
	}
}

func TestSendGcodeErrors(t *testing.T) {
	a, fake, _ := newTestApp(t)
	a.SendGcode("G1 X500")
	fake.fail(t, moonraker.MethodGcodeScript, "Move out of range")
	n, _ := a.notes.Latest()
	if n.Level != notify.Error || n.Message != "Move out of range" {
		t.Fatalf("notification = %+v, want remote error", n)
	}

	fake.open = false
	a.SendGcode("M190 S60")
	if a.printer.Waiting() {
		t.Fatalf("waiting flag left set after failed send")
	}
	n, _ = a.notes.Latest()
	if n.Level != notify.Warning {
		t.Fatalf("notification = %+v, want not-connected warning", n)
	}
}

func TestCommands(t *testing.T) {
	a, fake, _ := newTestApp(t)
	runInit(t, a, fake)

	a.Pause()
	a.Resume()
	a.Cancel()
	a.EmergencyStop()
	a.FirmwareRestart()
	a.TogglePower("printer")
	for _, method := range []string{
		moonraker.MethodPrintPause,
		moonraker.MethodPrintResume,
		moonraker.MethodPrintCancel,
		moonraker.MethodEmergencyStop,
		moonraker.MethodFirmwareRestart,
		moonraker.MethodPowerOff,
	} {
		if fake.count(method) != 1 {
			t.Fatalf("%s calls = %d, want 1", method, fake.count(method))
		}
	}

	fake.fail(t, moonraker.MethodPrintCancel, "no job")
	n, _ := a.notes.Latest()
	if n.Message != "Cancel failed: no job" {
		t.Fatalf("notification = %q", n.Message)
	}
}

func TestConnectionNotifications(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.ConnectFailed(1, io.ErrUnexpectedEOF)
	s, ok := a.notes.Standing()
	if !ok || s.Fatal || s.Attempts != 1 {
		t.Fatalf("standing = %+v (ok=%v), want attempt 1", s, ok)
	}
	a.Unreachable(5, io.ErrUnexpectedEOF)
	s, _ = a.notes.Standing()
	if !s.Fatal || s.Attempts != 5 {
		t.Fatalf("standing = %+v, want fatal after 5 attempts", s)
	}

	a.Retry()
	if _, ok := a.notes.Standing(); ok {
		t.Fatalf("standing notification survived Retry")
	}
	if a.client.(*fakeMoonraker).retried != 1 {
		t.Fatalf("client Retry not called")
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
