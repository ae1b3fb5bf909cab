// Package ui provides the terminal user interface for skein.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program that renders circuit and log state for
// one skeind mode at a time. It is read-only toward the daemon except for
// one control surface: pausing and resuming a mode's pipeline.
//
// # Package Structure
//
//   - app.go: Root model, key handling, messages, and the Run function
//   - circuits.go: Circuit table rendering and cell formatting
//   - logs.go: Log viewport content rendering
//   - header.go: Mode tabs, connection indicator, and command bar
//   - help.go: Help overlay
//   - theme.go: Color themes and Lipgloss styles
//
// # Event Flow
//
//  1. Run() subscribes to the bus and starts the Bubble Tea program
//  2. Every bus event is forwarded into the program as a message
//  3. Update folds events into the owning mode's pane
//  4. A one-second tick re-renders so ages and expiry countdowns move
//  5. The subscription is dropped when the program exits
//
// The bus pushes updates; the UI never polls the engine for state. The
// tick exists only because elapsed-time cells go stale without it.
//
// # Key Bindings
//
//   - Tab: Switch between client and relay mode
//   - c/r: Jump to client or relay mode
//   - Space: Pause or resume the active mode
//   - q or ESC: Circuits view
//   - l: Logs view
//   - f: Toggle log follow mode
//   - j/k, g/G: Navigate
//   - T: Cycle theme
//   - h or ?: Help overlay
//   - e or Ctrl+C: Exit
package ui
