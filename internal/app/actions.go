package app

import (
	"errors"
	"regexp"
	"strings"

	"github.com/five82/hotend/internal/moonraker"
	"github.com/five82/hotend/internal/printer"
)

// blockingHeat matches commands that hold the G-code queue until a heater
// reaches its target.
var blockingHeat = regexp.MustCompile(`(?im)^\s*(M109|M190|TEMPERATURE_WAIT)\b`)

// Snapshot returns a copy of the printer state for rendering.
func (a *App) Snapshot() printer.Snapshot { return a.printer.Snapshot() }

// History returns the last n samples of a device metric.
func (a *App) History(device, metric string, n int) ([]float64, bool) {
	return a.printer.History(device, metric, n)
}

// ConnState reports the connection state.
func (a *App) ConnState() moonraker.ConnState { return a.client.State() }

// Session returns the id of the open connection, or "".
func (a *App) Session() string { return a.client.Session() }

// SendGcode echoes script to the console and runs it on the printer.
func (a *App) SendGcode(script string) {
	script = strings.TrimSpace(script)
	if script == "" {
		return
	}
	a.sched.Post(func() { a.sendGcode(script) })
}

func (a *App) sendGcode(script string) {
	a.console.AddCommand(script)
	waits := blockingHeat.MatchString(script)
	if waits {
		a.printer.SetWaiting(true)
	}
	sent := a.client.GcodeScript(script, func(resp moonraker.Response) {
		if waits {
			a.printer.SetWaiting(false)
		}
		if err := resp.Err(); err != nil {
			a.console.AddResponse("!! " + errorText(err))
			a.notes.Error(errorText(err))
		}
	})
	if !sent {
		if waits {
			a.printer.SetWaiting(false)
		}
		a.notes.Warn("Not connected: " + script + " was not sent")
	}
}

// Pause pauses the running print.
func (a *App) Pause() { a.command("Pause", a.client.PrintPause) }

// Resume resumes a paused print.
func (a *App) Resume() { a.command("Resume", a.client.PrintResume) }

// Cancel cancels the active print.
func (a *App) Cancel() { a.command("Cancel", a.client.PrintCancel) }

// EmergencyStop halts the printer immediately.
func (a *App) EmergencyStop() { a.command("Emergency stop", a.client.EmergencyStop) }

// FirmwareRestart restarts Klipper and its MCUs.
func (a *App) FirmwareRestart() { a.command("Firmware restart", a.client.FirmwareRestart) }

// Retry restarts the connection after the retry budget ran out.
func (a *App) Retry() {
	a.sched.Post(func() {
		a.notes.ClearStanding()
		a.client.Retry()
	})
}

// TogglePower flips a power device on or off.
func (a *App) TogglePower(device string) {
	a.sched.Post(func() {
		status, ok := a.printer.PowerStatus(device)
		if !ok {
			a.notes.Warn("Unknown power device " + device)
			return
		}
		send := a.client.PowerOn
		if status == "on" {
			send = a.client.PowerOff
		}
		a.command("Power "+device, func(cb moonraker.Callback) bool { return send(device, cb) })
	})
}

func (a *App) command(label string, send func(moonraker.Callback) bool) {
	a.sched.Post(func() {
		sent := send(func(resp moonraker.Response) {
			if err := resp.Err(); err != nil {
				a.notes.Error(label + " failed: " + errorText(err))
			}
		})
		if !sent {
			a.notes.Warn(label + " not sent: not connected")
		}
	})
}

func errorText(err error) string {
	var rpcErr *moonraker.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return err.Error()
}
