package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter binds raw task arguments to the Go types used by task modules.
type Converter interface {
	// DecodeBody evaluates the argument expressions and populates the fields
	// of target, a pointer to a struct tagged with `datajob:"name"`.
	DecodeBody(ctx context.Context, target any, args map[string]hcl.Expression) error

	// ToCtyValue converts a native Go value into its cty.Value equivalent.
	ToCtyValue(v any) (cty.Value, error)
}
