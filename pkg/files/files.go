// Package files stages uploaded files into a local scratch directory and
// records the metadata the rest of the system needs: a generated unique
// id, the original name, the local path, a detected type, and the size.
package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/observability"
)

// File types detected from the original filename extension. The engine
// uses the type to tell the model how to load each file.
const (
	TypeTabular = "tabular"
	TypeText    = "text"
	TypeImage   = "image"
	TypeOther   = "other"
)

// Staging writes uploads into a scratch directory, keyed by generated id
// plus the original extension so two uploads of "data.csv" never collide.
type Staging struct {
	dir string
}

// NewStaging creates the scratch directory if needed.
func NewStaging(dir string) (*Staging, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "werkbank-uploads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Staging{dir: dir}, nil
}

// Dir returns the scratch directory path.
func (s *Staging) Dir() string {
	return s.dir
}

// Store writes the upload to the scratch directory and returns its
// FileRef. The stored filename is the generated id plus the original
// extension; the FileRef keeps the original name for display and
// manifest purposes.
func (s *Staging) Store(name string, r io.Reader) (api.FileRef, error) {
	name = sanitizeName(name)
	if name == "" {
		return api.FileRef{}, fmt.Errorf("upload has no usable filename")
	}

	id := api.NewFileID()
	path := filepath.Join(s.dir, id+filepath.Ext(name))

	f, err := os.Create(path)
	if err != nil {
		return api.FileRef{}, fmt.Errorf("create %s: %w", path, err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return api.FileRef{}, fmt.Errorf("write %s: %w", path, err)
	}

	ref := api.FileRef{
		ID:   id,
		Name: name,
		Path: path,
		Type: DetectType(name),
		Size: size,
	}
	observability.UploadsTotal.WithLabelValues(ref.Type).Inc()
	return ref, nil
}

// Remove deletes the stored files from the scratch directory. Missing
// files are ignored so Remove can run on cleanup paths.
func (s *Staging) Remove(refs []api.FileRef) {
	for _, ref := range refs {
		if err := os.Remove(ref.Path); err != nil && !os.IsNotExist(err) {
			slog.Warn("removing staged file failed", "name", ref.Name, "error", err.Error())
		}
	}
}

// DetectType classifies a filename by extension.
func DetectType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".xlsx", ".xls", ".parquet", ".json":
		return TypeTabular
	case ".txt", ".md", ".log":
		return TypeText
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".bmp":
		return TypeImage
	default:
		return TypeOther
	}
}

// sanitizeName strips any path components from an uploaded filename.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
