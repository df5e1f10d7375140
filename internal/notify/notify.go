// Package notify keeps the user-facing notification list: transient
// messages from commands and G-code responses, plus one standing entry
// for connection trouble.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level orders notifications by severity.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// DefaultLimit is the number of notifications kept when none is configured.
const DefaultLimit = 50

// Notification is one message shown to the user.
type Notification struct {
	ID      uint64
	Level   Level
	Message string
	Time    time.Time
	// Repeats counts identical consecutive messages folded into this one.
	Repeats int
}

// Standing describes the persistent connection problem, if any.
type Standing struct {
	Message  string
	Attempts int
	Fatal    bool
	Since    time.Time
}

// Center stores notifications. It is safe for concurrent use.
type Center struct {
	mu       sync.RWMutex
	items    []Notification
	limit    int
	nextID   uint64
	standing *Standing
	seq      uint64
	now      func() time.Time
}

// New returns a center keeping at most limit notifications.
func New(limit int) *Center {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Center{limit: limit, now: time.Now}
}

// Push appends a notification. A message identical to the newest one is
// folded into it.
func (c *Center) Push(level Level, message string) Notification {
	message = strings.TrimSpace(message)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++

	if n := len(c.items); n > 0 {
		last := &c.items[n-1]
		if last.Level == level && last.Message == message {
			last.Repeats++
			last.Time = c.now()
			return *last
		}
	}

	c.nextID++
	item := Notification{ID: c.nextID, Level: level, Message: message, Time: c.now()}
	c.items = append(c.items, item)
	if len(c.items) > c.limit {
		c.items = append([]Notification(nil), c.items[len(c.items)-c.limit:]...)
	}
	return item
}

func (c *Center) Info(message string) Notification  { return c.Push(Info, message) }
func (c *Center) Warn(message string) Notification  { return c.Push(Warning, message) }
func (c *Center) Error(message string) Notification { return c.Push(Error, message) }

// Recent returns up to n notifications, newest first. n <= 0 returns all.
func (c *Center) Recent(n int) []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || n > len(c.items) {
		n = len(c.items)
	}
	out := make([]Notification, 0, n)
	for i := len(c.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, c.items[i])
	}
	return out
}

// Latest returns the newest notification.
func (c *Center) Latest() (Notification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 {
		return Notification{}, false
	}
	return c.items[len(c.items)-1], true
}

// Dismiss removes one notification by id.
func (c *Center) Dismiss(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if item.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.seq++
			return true
		}
	}
	return false
}

// Clear removes every transient notification.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.seq++
}

// SetConnecting records a failed connection attempt on the standing entry.
func (c *Center) SetConnecting(attempt int, message string) {
	c.setStanding(attempt, message, false)
}

// SetUnreachable marks the standing entry fatal; only a manual retry
// clears it.
func (c *Center) SetUnreachable(attempts int, message string) {
	c.setStanding(attempts, message, true)
}

func (c *Center) setStanding(attempts int, message string, fatal bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	since := c.now()
	if c.standing != nil {
		since = c.standing.Since
	}
	c.standing = &Standing{Message: message, Attempts: attempts, Fatal: fatal, Since: since}
	c.seq++
}

// ClearStanding removes the connection entry.
func (c *Center) ClearStanding() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.standing != nil {
		c.standing = nil
		c.seq++
	}
}

// Standing returns the connection entry, if any.
func (c *Center) Standing() (Standing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.standing == nil {
		return Standing{}, false
	}
	return *c.standing, true
}

// Seq increments on every change.
func (c *Center) Seq() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}
