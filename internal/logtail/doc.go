// Package logtail reads and formats the tail of hotend's own log file for
// the in-app log view.
//
// # Reading
//
// Read uses a ring buffer to extract the last maxLines from a file in one
// sequential pass, using O(maxLines) memory. A missing file yields no lines
// and no error, so the view can open before the first record is written.
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//	if err != nil {
//		return err
//	}
//
// # Formatting
//
// The log file holds one zerolog JSON object per line. Format turns a record
// into a single readable line:
//
//	15:04:05 WARN [moonraker] connect failed error=connection refused attempt=3
//
// Reserved keys (time, level, component, message, error) are placed first;
// remaining fields follow in key order. Lines that are not JSON pass through
// unchanged.
package logtail
