// Package config defines the format-agnostic model of a datajob stack file,
// along with the core interfaces (Loader, Converter) for loading it and for
// binding task arguments to Go types.
//
// The `config.Model` is the single source of truth for the task registry and
// the workflow compiler. Concrete implementations of the interfaces, such as
// for HCL, are provided in separate packages.
package config
