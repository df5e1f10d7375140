package console

import (
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is the number of lines kept when none is configured.
const DefaultCapacity = 500

// Kind classifies a console line.
type Kind int

const (
	// Command is a script typed or sent by this console.
	Command Kind = iota
	// Response is plain output from Klipper.
	Response
	// Echo is an "echo:" or "//" informational line.
	Echo
	// Error is a "!!" error line.
	Error
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Response:
		return "response"
	case Echo:
		return "echo"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Line is one entry in the console.
type Line struct {
	Time time.Time
	Kind Kind
	Text string
}

// Buffer keeps the most recent console lines in a fixed ring.
type Buffer struct {
	mu    sync.RWMutex
	ring  []Line
	idx   int
	count int
	seq   uint64
	now   func() time.Time
}

// New returns a buffer holding at most capacity lines.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{ring: make([]Line, capacity), now: time.Now}
}

// Classify reports the kind of a line received from Klipper.
func Classify(text string) Kind {
	switch {
	case strings.HasPrefix(text, "!! "), strings.HasPrefix(text, "!!"):
		return Error
	case strings.HasPrefix(text, "echo: "), strings.HasPrefix(text, "// "):
		return Echo
	default:
		return Response
	}
}

// IsTemperatureReport reports whether a line is an M105-style
// "B:.. T:.." report that the console hides.
func IsTemperatureReport(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "B:") || strings.HasPrefix(t, "T:") || strings.HasPrefix(t, "ok B:") || strings.HasPrefix(t, "ok T:")
}

// AddCommand records a script sent by the user.
func (b *Buffer) AddCommand(script string) {
	b.add(Command, script)
}

// AddResponse records a line received from Klipper.
func (b *Buffer) AddResponse(text string) {
	b.add(Classify(text), text)
}

func (b *Buffer) add(kind Kind, text string) {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring[b.idx] = Line{Time: b.now(), Kind: kind, Text: text}
	b.idx = (b.idx + 1) % len(b.ring)
	if b.count < len(b.ring) {
		b.count++
	}
	b.seq++
}

// Len returns the number of stored lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Seq increments on every write.
func (b *Buffer) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Lines returns at most maxLines of the newest lines, oldest first.
// maxLines <= 0 returns every stored line.
func (b *Buffer) Lines(maxLines int) []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.count
	if maxLines > 0 && maxLines < n {
		n = maxLines
	}
	out := make([]Line, n)
	size := len(b.ring)
	start := (b.idx - n + size) % size
	for i := 0; i < n; i++ {
		out[i] = b.ring[(start+i)%size]
	}
	return out
}

// Clear removes every line.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.ring {
		b.ring[i] = Line{}
	}
	b.idx = 0
	b.count = 0
	b.seq++
}
