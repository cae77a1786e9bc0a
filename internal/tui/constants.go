package tui

import "time"

const (
	// Timeouts and Intervals
	TickInterval = 500 * time.Millisecond

	// Input Dimensions
	InputWidth = 60

	// Layout Offsets and Padding
	ProgressBarWidthOffset = 4
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0
	BoxWidth               = 84
	MinBoxWidth            = 40

	// Speed graph
	SpeedHistoryLength = 120
	GraphHeight        = 6

	// Track list rows shown per column
	TrackListRows = 8
)
