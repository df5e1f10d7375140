package printer

// State is the discrete machine state derived from Klipper's live fields.
type State string

const (
	StateDisconnected State = "disconnected"
	StateStartup      State = "startup"
	StateReady        State = "ready"
	StateShutdown     State = "shutdown"
	StateError        State = "error"
	StatePrinting     State = "printing"
	StatePaused       State = "paused"
	StateInterrupt    State = "interrupt"
)

// States lists every state a callback can be registered for.
var States = []State{
	StateDisconnected,
	StateStartup,
	StateReady,
	StateShutdown,
	StateError,
	StatePrinting,
	StatePaused,
	StateInterrupt,
}

// Known reports whether s is one of the eight machine states.
func (s State) Known() bool {
	for _, k := range States {
		if k == s {
			return true
		}
	}
	return false
}

// Active reports whether a job is loaded on the printer.
func (s State) Active() bool {
	return s == StatePrinting || s == StatePaused || s == StateInterrupt
}

// evaluate applies the two-tier precedence: firmware health from webhooks
// gates the job state from print_stats.
func evaluate(data map[string]map[string]any) State {
	firmware, _ := data["webhooks"]["state"].(string)
	if State(firmware) != StateReady {
		return State(firmware)
	}
	job, ok := data["print_stats"]["state"].(string)
	if !ok {
		return StateReady
	}
	switch State(job) {
	case StateInterrupt:
		return StateInterrupt
	case StatePaused:
		return StatePaused
	case StatePrinting:
		return StatePrinting
	}
	return StateReady
}
