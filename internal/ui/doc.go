// Package ui renders the wgdyn command-line output.
//
// Results are drawn as Lipgloss boxes when writing to a terminal and as plain
// "key: value" lines otherwise, so the output of the client can be piped into
// other tools.
//
// # Components
//
//   - Header: banner showing the command and its parameters
//   - Result: success, failure or warning box with ordered details
//   - Printer: writes components to an io.Writer, choosing plain output when
//     the writer is not a terminal
//
// RenderLease, RenderError and RenderEndpoints build the results the client
// commands print.
//
// # Logging Integration
//
// This package expects logging to be controlled via the WGDYN_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
