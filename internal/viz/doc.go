// Package viz renders emulator runs in the terminal.
//
// Plots are drawn with asciigraph and styled with lipgloss. [Browser] is
// an interactive Bubble Tea program that switches between calibrated
// models and emission pathways and re-runs the emulator on every change.
//
// # Key Bindings
//
//	j/k, up/down  - Select model
//	h/l, left/right - Select emission pathway
//	a             - Overlay every model
//	o             - Toggle the ocean series
//	t             - Cycle color themes
//	q             - Quit
package viz
