package main

// Icons used throughout the TUI.
// Using standard Unicode symbols for maximum terminal compatibility.
const (
	IconCursor   = "▸" // Selected row
	IconLive     = "●" // Live subscription open
	IconPaused   = "○" // Screen blurred, subscription released
	IconDot      = "·" // Separator dot
	IconDivider  = "─" // Row divider
)
