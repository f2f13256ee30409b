// Package registry provides the central "glue" for the task module system.
//
// The Registry maps the task kinds used in stack files (e.g. "glue" in
// `task "glue" "extract"`) to the compiled Go factories that decode a
// task's arguments and build the task.Task taking part in workflows.
//
// During application startup every core module registers its kinds and the
// registry is validated, so that a malformed argument struct fails fast
// instead of when the first stack file using it is loaded.
package registry
