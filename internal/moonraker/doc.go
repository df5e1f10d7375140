// Package moonraker provides the client side of the Moonraker API: the
// HTTP handshake, the JSON-RPC websocket channel and the reconnect policy.
//
// # Architecture
//
// The package is split into several files:
//
//   - rest.go: HTTP client for /server/info and /access/oneshot_token
//   - transport.go: one websocket connection with a single writer goroutine
//   - correlator.go: request ids, pending replies and push routing
//   - connection.go: connection lifecycle and retry budget
//   - api.go: typed wrappers over the Moonraker methods the console uses
//   - types.go: payloads mirroring the Moonraker API schema
//
// # Handshake
//
// Each attempt runs three steps in order:
//
//  1. GET /server/info confirms Moonraker is alive
//  2. GET /access/oneshot_token obtains a short-lived token
//  3. the websocket is dialed at /websocket?token=<token>
//
// The wss/https schemes are used when the port is in the secure port set
// (443 and 7130 by default). An optional route prefix is inserted before
// every path.
//
// # Reconnect Policy
//
// A failed attempt increments the retry counter and schedules another
// attempt after RetryDelay. Once the counter exceeds MaxRetries the client
// stops, reports Unreachable, and waits for Retry. A remote close of an
// open channel resets the counter and schedules a reconnect. Close never
// produces a disconnect notification.
//
// # Delivery
//
// Replies, pushes and lifecycle events are posted to a dispatch queue so
// that consumers observe them on one goroutine, in arrival order. Send may
// be called from any goroutine. A request sent while disconnected reports
// false and its callback never runs; requests pending when the channel
// drops are discarded the same way.
//
// Example:
//
//	client, err := moonraker.NewClient(moonraker.Options{
//		Endpoint: moonraker.Endpoint{Host: "voron.local", Port: 7125},
//		Queue:    queue,
//		Listener: listener,
//		OnPush:   onPush,
//	})
//	if err != nil {
//		return err
//	}
//	client.Connect()
//	client.PrinterInfo(func(resp moonraker.Response) {
//		var info moonraker.PrinterInfo
//		if err := resp.Decode(&info); err != nil {
//			return
//		}
//	})
package moonraker
