// Package execinput tracks values a workflow expects at execution time and
// generates execution input documents for them.
package execinput

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/vk/datajob/internal/ctxlog"
)

// OutputKey is the stack output holding the JSON list of input keys.
const OutputKey = "DatajobExecutionInput"

// MaxNameLength is the longest name a generated unique name may have.
const MaxNameLength = 63

const timestampLayout = "20060102T150405"

// ErrDuplicateEntry is returned when a key is registered twice.
var ErrDuplicateEntry = errors.New("entry already exists in the execution input")

// Schema is the ordered set of execution input keys of a stack.
type Schema struct {
	mu   sync.Mutex
	keys []string
	seen map[string]struct{}
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{seen: make(map[string]struct{})}
}

// Add registers key and returns the state machine path that reads it.
func (s *Schema) Add(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		return "", errors.New("execution input key is required")
	}
	if _, ok := s.seen[key]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateEntry, key)
	}
	s.seen[key] = struct{}{}
	s.keys = append(s.keys, key)
	return Placeholder(key), nil
}

// Resolve returns value unchanged when it is set. Otherwise key is added to
// the schema and its placeholder is returned.
func (s *Schema) Resolve(ctx context.Context, value, key string) (string, error) {
	if value != "" {
		return value, nil
	}
	ctxlog.FromContext(ctx).Debug("No value given, using execution input.", "key", key)
	return s.Add(key)
}

// Keys returns the registered keys in registration order.
func (s *Schema) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

// Len returns the number of keys.
func (s *Schema) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// JSON encodes the keys as a JSON list, the value of the OutputKey output.
func (s *Schema) JSON() (string, error) {
	keys := s.Keys()
	if keys == nil {
		keys = []string{}
	}
	out, err := sonic.ConfigStd.MarshalToString(keys)
	if err != nil {
		return "", fmt.Errorf("encoding execution input keys: %w", err)
	}
	return out, nil
}

// ParseKeys decodes the value of the OutputKey output.
func ParseKeys(value string) ([]string, error) {
	var keys []string
	if err := sonic.ConfigStd.UnmarshalFromString(value, &keys); err != nil {
		return nil, fmt.Errorf("decoding execution input keys: %w", err)
	}
	return keys, nil
}

// Placeholder returns the path that reads key from the execution input.
func Placeholder(key string) string {
	return fmt.Sprintf("$$.Execution.Input['%s']", key)
}

// UniqueName appends the timestamp of at to name. The result never exceeds
// MaxNameLength bytes; name is cut short to fit, on a rune boundary.
func UniqueName(name string, at time.Time) string {
	stamp := at.UTC().Format(timestampLayout)
	if over := len(name) + len(stamp) + 1 - MaxNameLength; over > 0 {
		keep := len(name) - over
		if keep < 0 {
			keep = 0
		}
		for keep > 0 && !utf8.RuneStart(name[keep]) {
			keep--
		}
		name = name[:keep]
	}
	return name + "-" + stamp
}

// Generate builds an execution input document with a unique name per key.
func Generate(keys []string, at time.Time) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = UniqueName(k, at)
	}
	return out
}
