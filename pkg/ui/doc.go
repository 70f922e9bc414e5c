// Package ui holds the terminal output of imgurstats: color helpers, a line
// based fetch progress printer and desktop notifications. The full screen
// fetch view lives in ui/tui.
package ui
