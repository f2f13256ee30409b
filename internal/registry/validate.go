package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/datajob/internal/ctxlog"
)

// ValidateRegistry checks that every factory's input is a pointer to a struct
// whose `datajob` tags are non-empty and unique.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, kind := range r.Kinds() {
		input := r.factories[kind].NewInput()
		t := reflect.TypeOf(input)
		if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
			errs = append(errs, fmt.Sprintf("task kind '%s': input must be a pointer to a struct, got %T", kind, input))
			continue
		}

		seen := make(map[string]string)
		st := t.Elem()
		for i := 0; i < st.NumField(); i++ {
			field := st.Field(i)
			tag, ok := field.Tag.Lookup("datajob")
			if !ok || tag == "-" {
				continue
			}
			if !field.IsExported() {
				errs = append(errs, fmt.Sprintf("task kind '%s': field '%s' is tagged but not exported", kind, field.Name))
				continue
			}
			name := strings.Split(tag, ",")[0]
			if name == "" {
				errs = append(errs, fmt.Sprintf("task kind '%s': field '%s' has an empty argument name", kind, field.Name))
				continue
			}
			if other, dup := seen[name]; dup {
				errs = append(errs, fmt.Sprintf("task kind '%s': argument '%s' is bound to both '%s' and '%s'", kind, name, other, field.Name))
				continue
			}
			seen[name] = field.Name
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validated.", "kinds", len(r.factories))
	return nil
}
