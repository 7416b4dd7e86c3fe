package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the unit price column is hidden.
	LayoutCompactWidth = 70

	// LayoutWideWidth is the minimum width to show the product id column.
	LayoutWideWidth = 110
)

// Log pane limits.
const (
	// LogTailLines is the number of trailing log lines read per refresh.
	LogTailLines = 200

	// LogPaneHeight is the number of log lines shown below the cart.
	LogPaneHeight = 8
)

// Timing constants.
const (
	// DefaultUIInterval is the default snapshot polling interval.
	DefaultUIInterval = 250 * time.Millisecond
)
