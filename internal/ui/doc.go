// Package ui styles CLI output with lipgloss.
//
// A [Palette] is bound to the writer it renders for, so colors are dropped automatically when
// output is redirected to a file or captured in tests.
package ui
