package app

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/five82/hotend/internal/console"
	"github.com/five82/hotend/internal/moonraker"
	"github.com/five82/hotend/internal/printer"
)

const (
	klippyRetryDelay = 2 * time.Second
	samplePeriod     = time.Second
)

// Connected is called on the delivery goroutine when the channel opens.
func (a *App) Connected(session string) {
	a.notes.ClearStanding()
	a.log.Info().Str("session", session).Msg("moonraker connected")
	a.client.Identify(clientName, a.version, func(resp moonraker.Response) {
		if err := resp.Err(); err != nil {
			a.log.Warn().Err(err).Msg("identify failed")
		}
	})
	a.initPrinter()
}

// Disconnected is called when an open channel drops.
func (a *App) Disconnected(reason string) {
	a.endSession()
	a.printer.SetWaiting(false)
	a.printer.ChangeState(printer.StateDisconnected)
	a.notes.Warn("Lost connection to Moonraker: " + reason)
}

// ConnectFailed is called after each failed handshake.
func (a *App) ConnectFailed(attempt int, err error) {
	a.notes.SetConnecting(attempt, err.Error())
}

// Unreachable is called once the retry budget is spent.
func (a *App) Unreachable(attempts int, err error) {
	a.notes.SetUnreachable(attempts, err.Error())
	a.printer.ChangeState(printer.StateDisconnected)
}

// initPrinter starts a fresh initialization chain. Callbacks from older
// chains see a stale generation and stop.
func (a *App) initPrinter() {
	a.endSession()
	gen := a.initGen
	a.client.PrinterInfo(func(resp moonraker.Response) {
		if gen != a.initGen {
			return
		}
		var info moonraker.PrinterInfo
		if err := resp.Decode(&info); err != nil {
			a.log.Warn().Err(err).Msg("printer info failed")
			a.retryKlippy(gen)
			return
		}
		if info.State != string(printer.StateReady) {
			a.klippyNotReady(gen, info)
			return
		}
		a.klippyState = info.State
		a.discoverObjects(gen, info)
	})
}

func (a *App) klippyNotReady(gen int, info moonraker.PrinterInfo) {
	if info.State != a.klippyState {
		a.log.Info().Str("state", info.State).Str("message", info.StateMessage).Msg("klippy not ready")
		a.klippyState = info.State
	}
	if state := printer.State(info.State); state.Known() {
		a.printer.ChangeState(state)
	}
	a.retryKlippy(gen)
}

func (a *App) retryKlippy(gen int) {
	if a.klippyTimer != nil {
		a.klippyTimer.Stop()
	}
	a.klippyTimer = a.sched.After(klippyRetryDelay, func() {
		if gen == a.initGen {
			a.initPrinter()
		}
	})
}

func (a *App) discoverObjects(gen int, info moonraker.PrinterInfo) {
	a.client.ObjectsList(func(resp moonraker.Response) {
		if gen != a.initGen {
			return
		}
		var list moonraker.ObjectsList
		if err := resp.Decode(&list); err != nil {
			a.log.Warn().Err(err).Msg("objects list failed")
			a.retryKlippy(gen)
			return
		}
		objects := printer.QueryObjects(printer.DiscoverObjects(list.Objects))
		a.queryObjects(gen, info, objects)
	})
}

func (a *App) queryObjects(gen int, info moonraker.PrinterInfo, objects []string) {
	a.client.ObjectsQuery(objects, func(resp moonraker.Response) {
		if gen != a.initGen {
			return
		}
		var result moonraker.QueryResult
		if err := resp.Decode(&result); err != nil {
			a.log.Warn().Err(err).Msg("objects query failed")
			a.retryKlippy(gen)
			return
		}
		status, err := printer.DecodeStatus(result.Status)
		if err != nil {
			a.log.Warn().Err(err).Msg("decode object status")
			a.retryKlippy(gen)
			return
		}
		a.printer.Reinit(printer.Info{
			State:           info.State,
			StateMessage:    info.StateMessage,
			Hostname:        info.Hostname,
			SoftwareVersion: info.SoftwareVersion,
		}, status)
		a.subscribe(gen)
	})
}

func (a *App) subscribe(gen int) {
	a.client.Subscribe(a.printer.Subscription(), func(resp moonraker.Response) {
		if gen != a.initGen {
			return
		}
		var result moonraker.QueryResult
		if err := resp.Decode(&result); err != nil {
			a.log.Warn().Err(err).Msg("subscribe failed")
			return
		}
		if status, err := printer.DecodeStatus(result.Status); err == nil {
			a.printer.ProcessUpdate(status)
		}
		a.loadHistory(gen)
	})
}

func (a *App) loadHistory(gen int) {
	size := a.cfg.HistorySize
	sent := a.client.ServerConfig(func(resp moonraker.Response) {
		if gen != a.initGen {
			return
		}
		var sc moonraker.ServerConfig
		if err := resp.Decode(&sc); err == nil && sc.Config.DataStore.TemperatureStoreSize > 0 {
			size = sc.Config.DataStore.TemperatureStoreSize
		}
		a.client.TemperatureStore(func(resp moonraker.Response) {
			if gen != a.initGen {
				return
			}
			var store moonraker.TemperatureStore
			if err := resp.Decode(&store); err != nil {
				a.log.Debug().Err(err).Msg("temperature store unavailable")
				store = nil
			}
			a.printer.InitHistory(store, size)
			a.startSampler()
			a.loadPowerDevices(gen)
		})
	})
	if !sent {
		a.log.Debug().Msg("history request skipped")
	}
}

func (a *App) loadPowerDevices(gen int) {
	a.client.PowerDevices(func(resp moonraker.Response) {
		if gen != a.initGen {
			return
		}
		var list moonraker.PowerDeviceList
		if err := resp.Decode(&list); err != nil {
			a.log.Debug().Err(err).Msg("power devices unavailable")
			a.printer.ConfigurePowerDevices(nil)
		} else {
			a.printer.ConfigurePowerDevices(toPowerDevices(list.Devices))
		}
		a.log.Info().Int("generation", a.printer.Generation()).Msg("printer session ready")
	})
}

func (a *App) startSampler() {
	if a.stopSampler != nil {
		a.stopSampler()
	}
	a.stopSampler = a.sched.Every(samplePeriod, a.printer.SampleHistory)
}

// endSession invalidates the running chain and stops periodic work.
func (a *App) endSession() {
	a.initGen++
	if a.klippyTimer != nil {
		a.klippyTimer.Stop()
		a.klippyTimer = nil
	}
	if a.stopSampler != nil {
		a.stopSampler()
		a.stopSampler = nil
	}
}

func toPowerDevices(devices []moonraker.PowerDevice) []printer.PowerDevice {
	out := make([]printer.PowerDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, printer.PowerDevice{Device: d.Device, Status: d.Status})
	}
	return out
}

// HandlePush routes a server notification. It runs on the delivery goroutine.
func (a *App) HandlePush(method string, params json.RawMessage) {
	switch method {
	case "notify_status_update":
		if a.printer.State() == printer.StateShutdown {
			return
		}
		status, err := printer.DecodeStatus(params)
		if err != nil {
			a.log.Debug().Err(err).Msg("malformed status update")
			return
		}
		a.printer.ProcessUpdate(status)
	case "notify_power_changed":
		a.handlePowerChanged(params)
	case "notify_klippy_ready":
		a.log.Info().Msg("klippy ready")
		a.initPrinter()
	case "notify_klippy_shutdown":
		a.printer.ChangeState(printer.StateShutdown)
	case "notify_klippy_disconnected":
		a.endSession()
		a.klippyState = ""
		a.printer.SetWaiting(false)
		a.printer.ChangeState(printer.StateDisconnected)
		a.retryKlippy(a.initGen)
	case "notify_gcode_response":
		a.handleGcodeResponse(params)
	}
}

func (a *App) handlePowerChanged(params json.RawMessage) {
	var payload struct {
		Devices []moonraker.PowerDevice `json:"devices"`
		moonraker.PowerDevice
	}
	if err := json.Unmarshal(params, &payload); err != nil {
		a.log.Debug().Err(err).Msg("malformed power update")
		return
	}
	if payload.Devices != nil {
		a.printer.ConfigurePowerDevices(toPowerDevices(payload.Devices))
		return
	}
	if payload.Device == "" {
		return
	}
	if _, known := a.printer.PowerStatus(payload.Device); known {
		a.printer.UpdatePowerDevice(payload.Device, payload.Status)
		return
	}
	// A device we have not seen: fetch the full list again.
	a.loadPowerDevices(a.initGen)
}

func (a *App) handleGcodeResponse(params json.RawMessage) {
	var text string
	if err := json.Unmarshal(params, &text); err != nil {
		a.log.Debug().Err(err).Msg("malformed gcode response")
		return
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || console.IsTemperatureReport(line) {
			continue
		}
		a.console.AddResponse(line)
		switch {
		case strings.HasPrefix(line, "!! "):
			a.notes.Error(strings.TrimPrefix(line, "!! "))
		case strings.HasPrefix(line, "echo: "):
			a.notes.Info(strings.TrimPrefix(line, "echo: "))
		}
	}
}
