// Package internal contains the core implementation packages for termsim.
//
// # Package Organization
//
// The two presentation engines have no dependencies on the rest of the tree:
//
//   - reveal: progressive text reveal with an independently blinking cursor
//   - transcript: line classification and setting-value tokenization
//
// Everything else is built around them:
//
//   - render: category-to-style table, ANSI, table and HTML output
//   - server: preview page, classify API and websocket streams
//   - watcher: debounced file watching for transcript reloads
//   - config: viper-backed configuration with defaults and validation
//   - logging: slog-backed structured logger
//   - errors: typed errors for the CLI and server surfaces
//   - version: build metadata
//
// # Inter-Package Communication
//
//   - The server owns one reveal.Animator per /ws/reveal connection and
//     stops it when the connection ends
//   - The watcher triggers server reloads, which re-classify the transcript
//     and broadcast it through the websocket hub
//   - render reads classified lines and never re-derives categories
//
// # Testing Strategy
//
// Timing is driven through a clockz.Clock so animator tests advance a fake
// clock instead of sleeping. Property tests run with -tags property.
package internal
