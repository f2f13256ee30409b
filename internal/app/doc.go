// Package app contains the core application logic. It loads stack files,
// compiles every workflow into a state machine definition and emits the
// results, decoupled from any specific entrypoint like a CLI.
package app
