package moonraker

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Method names used by the console.
const (
	MethodIdentify         = "server.connection.identify"
	MethodServerConfig     = "server.config"
	MethodTemperatureStore = "server.temperature_store"
	MethodPrinterInfo      = "printer.info"
	MethodObjectsList      = "printer.objects.list"
	MethodObjectsQuery     = "printer.objects.query"
	MethodObjectsSubscribe = "printer.objects.subscribe"
	MethodGcodeScript      = methodGcodeScript
	MethodEmergencyStop    = "printer.emergency_stop"
	MethodFirmwareRestart  = "printer.firmware_restart"
	MethodRestart          = "printer.restart"
	MethodPrintStart       = "printer.print.start"
	MethodPrintPause       = "printer.print.pause"
	MethodPrintResume      = "printer.print.resume"
	MethodPrintCancel      = "printer.print.cancel"
	MethodPowerDevices     = "machine.device_power.devices"
	MethodPowerOn          = "machine.device_power.on"
	MethodPowerOff         = "machine.device_power.off"
	MethodFilesList        = "server.files.list"
	MethodFilesDirectory   = "server.files.get_directory"
	MethodFilesMetadata    = "server.files.metadata"
)

// Identify registers this console with Moonraker.
func (c *Client) Identify(name, version string, cb Callback) bool {
	return c.Send(MethodIdentify, map[string]any{
		"client_name": name,
		"version":     version,
		"type":        "other",
		"url":         "https://github.com/five82/hotend",
	}, cb)
}

// PrinterInfo requests printer.info.
func (c *Client) PrinterInfo(cb Callback) bool {
	return c.Send(MethodPrinterInfo, nil, cb)
}

// ServerConfig requests the Moonraker configuration.
func (c *Client) ServerConfig(cb Callback) bool {
	return c.Send(MethodServerConfig, nil, cb)
}

// TemperatureStore requests the cached temperature history.
func (c *Client) TemperatureStore(cb Callback) bool {
	return c.Send(MethodTemperatureStore, map[string]any{"include_monitors": false}, cb)
}

// ObjectsList requests the names of every loaded printer object.
func (c *Client) ObjectsList(cb Callback) bool {
	return c.Send(MethodObjectsList, nil, cb)
}

// ObjectsQuery requests the full status of the named objects.
func (c *Client) ObjectsQuery(objects []string, cb Callback) bool {
	req := make(map[string]any, len(objects))
	for _, name := range objects {
		req[name] = nil
	}
	return c.Send(MethodObjectsQuery, map[string]any{"objects": req}, cb)
}

// Subscribe replaces the server-side subscription. objects marshals to the
// object → fields map.
func (c *Client) Subscribe(objects json.Marshaler, cb Callback) bool {
	return c.Send(MethodObjectsSubscribe, map[string]any{"objects": objects}, cb)
}

// GcodeScript runs a G-code script.
func (c *Client) GcodeScript(script string, cb Callback) bool {
	return c.Send(MethodGcodeScript, map[string]any{"script": script}, cb)
}

// EmergencyStop halts the printer immediately.
func (c *Client) EmergencyStop(cb Callback) bool {
	return c.Send(MethodEmergencyStop, nil, cb)
}

// FirmwareRestart restarts the MCU firmware and Klipper host.
func (c *Client) FirmwareRestart(cb Callback) bool {
	return c.Send(MethodFirmwareRestart, nil, cb)
}

// Restart restarts the Klipper host.
func (c *Client) Restart(cb Callback) bool {
	return c.Send(MethodRestart, nil, cb)
}

// PrintStart starts printing a file from the gcodes root.
func (c *Client) PrintStart(filename string, cb Callback) bool {
	return c.Send(MethodPrintStart, map[string]any{"filename": filename}, cb)
}

// PrintPause pauses the current job.
func (c *Client) PrintPause(cb Callback) bool {
	return c.Send(MethodPrintPause, nil, cb)
}

// PrintResume resumes a paused job.
func (c *Client) PrintResume(cb Callback) bool {
	return c.Send(MethodPrintResume, nil, cb)
}

// PrintCancel cancels the current job.
func (c *Client) PrintCancel(cb Callback) bool {
	return c.Send(MethodPrintCancel, nil, cb)
}

// SetHeaterTarget sets a heater target. name is the printer object name,
// e.g. "heater_bed" or "heater_generic chamber".
func (c *Client) SetHeaterTarget(name string, target float64, cb Callback) bool {
	return c.GcodeScript(HeaterTargetGcode(name, target), cb)
}

// SetToolTarget sets the target of extruder index tool.
func (c *Client) SetToolTarget(tool int, target float64, cb Callback) bool {
	return c.GcodeScript(fmt.Sprintf("M104 T%d S%s", tool, formatNumber(target)), cb)
}

// SetTemperatureFanTarget sets the target of a temperature_fan.
func (c *Client) SetTemperatureFanTarget(name string, target float64, cb Callback) bool {
	return c.GcodeScript(fmt.Sprintf("SET_TEMPERATURE_FAN_TARGET TEMPERATURE_FAN=%s TARGET=%s",
		shortName(name), formatNumber(target)), cb)
}

// SetFanSpeed sets a fan speed in percent.
func (c *Client) SetFanSpeed(name string, percent float64, cb Callback) bool {
	return c.GcodeScript(FanSpeedGcode(name, percent), cb)
}

// PowerDevices lists Moonraker power devices.
func (c *Client) PowerDevices(cb Callback) bool {
	return c.Send(MethodPowerDevices, nil, cb)
}

// PowerOn switches a power device on.
func (c *Client) PowerOn(device string, cb Callback) bool {
	return c.Send(MethodPowerOn, map[string]any{device: nil}, cb)
}

// PowerOff switches a power device off.
func (c *Client) PowerOff(device string, cb Callback) bool {
	return c.Send(MethodPowerOff, map[string]any{device: nil}, cb)
}

// FilesList lists files under root, usually "gcodes".
func (c *Client) FilesList(root string, cb Callback) bool {
	if root == "" {
		root = "gcodes"
	}
	return c.Send(MethodFilesList, map[string]any{"root": root}, cb)
}

// Directory lists one directory.
func (c *Client) Directory(path string, extended bool, cb Callback) bool {
	return c.Send(MethodFilesDirectory, map[string]any{"path": path, "extended": extended}, cb)
}

// FileMetadata requests slicer metadata for a file.
func (c *Client) FileMetadata(filename string, cb Callback) bool {
	return c.Send(MethodFilesMetadata, map[string]any{"filename": filename}, cb)
}

// HeaterTargetGcode renders the script that sets a heater target.
func HeaterTargetGcode(name string, target float64) string {
	return fmt.Sprintf("SET_HEATER_TEMPERATURE HEATER=%s TARGET=%s", shortName(name), formatNumber(target))
}

// FanSpeedGcode renders the script that sets a fan speed in percent. The
// part cooling fan uses M106; other controllable fans use SET_FAN_SPEED.
func FanSpeedGcode(name string, percent float64) string {
	percent = math.Max(0, math.Min(100, percent))
	if name == "fan" {
		return fmt.Sprintf("M106 S%d", int(math.Round(percent*255/100)))
	}
	return fmt.Sprintf("SET_FAN_SPEED FAN=%s SPEED=%s", shortName(name), formatNumber(percent/100))
}

// shortName strips the object type from a section name:
// "heater_generic chamber" becomes "chamber".
func shortName(name string) string {
	if i := strings.LastIndex(name, " "); i >= 0 {
		return name[i+1:]
	}
	return name
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
