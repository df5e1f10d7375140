// Package app is the composition root for hotend.
//
// # Overview
//
// Run loads configuration, opens the log file, starts the delivery queue,
// connects to Moonraker and hands a Backend to the UI. Everything that
// mutates the printer mirror runs on the delivery queue goroutine.
//
// # Components
//
//   - app.go: Run, App construction and state-transition notifications
//   - session.go: connection listener, printer initialization chain and
//     server push routing
//   - actions.go: operator commands exposed to the UI
//
// # Initialization
//
//	Connected()
//	  ├─> server.connection.identify
//	  └─> printer.info ──(not ready)──> retry in 2s / notify_klippy_ready
//	        └─> printer.objects.list
//	              └─> printer.objects.query ──> Printer.Reinit
//	                    └─> printer.objects.subscribe ──> ProcessUpdate
//	                          └─> server.config + server.temperature_store
//	                                └─> InitHistory, start sampler
//	                                      └─> machine.device_power.devices
//
// Each chain captures a generation number. Disconnects and re-inits bump
// it, so replies that belong to an abandoned chain are ignored.
//
// # Error Handling
//
// Only configuration and log setup errors are returned from Run. Failures
// after startup become printer state changes or notifications.
package app
