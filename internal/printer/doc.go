// Package printer holds the console's canonical mirror of Klipper state.
//
// # Overview
//
// A Printer is created once at process start, disconnected and empty. Every
// successful Moonraker handshake reinitializes it from one bulk object query:
// the static configuration is replaced wholesale from configfile.config, the
// device index is rebuilt and the machine state is re-evaluated. After that it
// is mutated by pushed deltas and by the one-second telemetry sampler.
//
// # Update Semantics
//
//	// Reinit: wholesale
//	p.Reinit(info, status)
//	→ config  = status.configfile.config
//	→ data    = status
//	→ devices = derived from config
//
//	// ProcessUpdate: field-by-field
//	p.ProcessUpdate(Status{"a": {"x": 1}})
//	p.ProcessUpdate(Status{"a": {"y": 2}})
//	→ data.a = {x: 1, y: 2}
//
// configfile deltas are merged only when they carry both
// save_config_pending and save_config_pending_items, and configfile.config is
// never touched by a delta.
//
// # Machine State
//
// EvaluateState applies two tiers. webhooks.state gates everything: when the
// firmware is not "ready" its state is returned as-is. Only a ready firmware
// lets print_stats.state promote the result to printing, paused or interrupt.
// A printer whose firmware shut down is never reported as printing, whatever
// stale job fields say.
//
// ChangeState ignores states outside the eight known ones and repeated
// transitions, so each transition posts its callback exactly once.
//
// # Telemetry
//
// InitHistory allocates one fixed-length Ring per device per metric
// (temperatures, targets, powers, speeds), zero-padded at the front.
// SampleHistory pushes the current reading into every ring; the length never
// changes.
//
// # Concurrency
//
// All writes happen on the dispatch queue. Reads from other goroutines (the
// TUI) go through an RWMutex and copy-out accessors such as Snapshot.
package printer
