package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/datajob/internal/ctxlog"
)

// File writes each definition to <dir>/<name>.asl.json.
type File struct {
	dir string
}

// NewFile returns a File publisher writing into dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Name implements Publisher.
func (f *File) Name() string { return "file" }

// Path returns the file a document is written to.
func (f *File) Path(doc *Document) string {
	return filepath.Join(f.dir, doc.Name+".asl.json")
}

// Publish implements Publisher.
func (f *File) Publish(ctx context.Context, doc *Document) error {
	path := f.Path(doc)
	if err := os.WriteFile(path, []byte(doc.Definition), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("Wrote definition.", "path", path)
	return nil
}

// Close implements Publisher.
func (f *File) Close() error { return nil }
