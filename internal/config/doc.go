// Package config handles loading and parsing the hotend configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/hotend/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// Files ending in .yaml or .yml are read as YAML with the same keys.
//
// # Default Values
//
//   - Moonraker: 127.0.0.1:7125, secure ports 443 and 7130
//   - Connection: 4 retries, 10 seconds apart
//   - History: 1200 samples per series (20 minutes at 1 Hz)
//   - Console: 500 lines
//   - Log file: ~/.local/share/hotend/hotend.log at level info
//
// # TOML Format
//
//	[moonraker]
//	host = "voron.local"
//	port = 7125
//	api_key = ""
//	route_prefix = ""
//	secure_ports = [443, 7130]
//
//	[connection]
//	max_retries = 4
//	retry_delay_seconds = 10
//
//	[history]
//	size = 1200
//
//	[console]
//	lines = 500
//
//	[log]
//	dir = "~/.local/share/hotend"
//	level = "info"
//
// # Validation
//
// Load validates the merged result. Ports must be in 1..65535, retry values
// must not be negative, the history size must be positive and the log level
// must be one zerolog understands.
//
// # Path Expansion
//
// Paths beginning with ~ are expanded to the user's home directory and
// converted to absolute paths.
package config
