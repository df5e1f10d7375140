// Package ui is the hotend terminal interface, built on Bubble Tea.
//
// # Views
//
//   - Dashboard: temperatures with history sparklines, the print job,
//     toolhead homing and position, fans and power devices
//   - Console: G-code scrollback with a prompt and command recall
//   - Notifications: the standing connection entry and recent messages
//   - Logs: the tail of hotend's own log file
//
// # Data Flow
//
// The model never touches the printer directly. A tick fetches a
// printer.Snapshot and the connection state from the Backend, and the
// console and notification viewports re-render only when their sequence
// numbers move. Commands (pause, cancel, G-code, power) go to the Backend,
// which posts them to the delivery queue and returns at once.
//
// Destructive commands (cancel, emergency stop, firmware restart, power
// while printing) open a confirm modal first.
//
// # Preferences
//
// Theme, the last view and sparkline visibility are saved through the
// prefs package whenever they change.
package ui
