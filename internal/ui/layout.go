package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutSideBySideWidth is the minimum width to place the job panel
	// beside the temperature panel.
	LayoutSideBySideWidth = 120
)

// Buffer limits.
const (
	// LogTailLines is how many lines of the log file the logs view reads.
	LogTailLines = 1000

	// PromptHistoryLimit caps the recalled console commands.
	PromptHistoryLimit = 100
)

// Timing constants.
const (
	// DefaultUIInterval is the default snapshot refresh interval.
	DefaultUIInterval = 500 * time.Millisecond

	// LogRefreshInterval is the minimum time between log file reads.
	LogRefreshInterval = 2 * time.Second
)
