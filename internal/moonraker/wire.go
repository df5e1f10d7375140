package moonraker

import (
	"bytes"
	"encoding/json"
	"strconv"
)

const jsonRPCVersion = "2.0"

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}

// envelope covers both correlated replies and pushed notifications.
type envelope struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (e envelope) id() (uint64, bool) {
	raw := bytes.TrimSpace(e.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// pushParams returns the first positional parameter of a notification,
// or an empty object when none was sent.
func (e envelope) pushParams() json.RawMessage {
	raw := bytes.TrimSpace(e.Params)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("{}")
	}
	if raw[0] != '[' {
		return json.RawMessage(raw)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return json.RawMessage("{}")
	}
	return list[0]
}
