package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one structured log record.
type Entry struct {
	Time      time.Time
	Level     string
	Component string
	Message   string
	Error     string
	Fields    []string
}

var reservedKeys = map[string]struct{}{
	"time":      {},
	"level":     {},
	"component": {},
	"message":   {},
	"error":     {},
}

// Parse decodes a JSON log record. Lines that are not JSON objects are
// returned as the message of an entry with no level.
func Parse(line string) Entry {
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return Entry{Message: line}
	}
	e := Entry{}
	if ts, ok := rec["time"].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339, ts)
	}
	e.Level, _ = rec["level"].(string)
	e.Component, _ = rec["component"].(string)
	e.Message, _ = rec["message"].(string)
	e.Error, _ = rec["error"].(string)

	keys := make([]string, 0, len(rec))
	for k := range rec {
		if _, skip := reservedKeys[k]; !skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Fields = append(e.Fields, fmt.Sprintf("%s=%v", k, rec[k]))
	}
	return e
}

// Format renders a record as "15:04:05 INFO [component] message k=v".
func Format(line string) string {
	e := Parse(line)
	if e.Level == "" && e.Time.IsZero() {
		return e.Message
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format(time.TimeOnly))
		b.WriteString(" ")
	}
	if e.Level != "" {
		b.WriteString(strings.ToUpper(e.Level))
		b.WriteString(" ")
	}
	if e.Component != "" {
		b.WriteString("[" + e.Component + "] ")
	}
	b.WriteString(e.Message)
	if e.Error != "" {
		b.WriteString(" error=" + e.Error)
	}
	for _, f := range e.Fields {
		b.WriteString(" " + f)
	}
	return b.String()
}
