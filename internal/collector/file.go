package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileSource reads bhavcopies from a path pattern such as data/cm{date}bhav.csv.
type FileSource struct {
	Pattern string
}

func NewFileSource(pattern string) *FileSource { return &FileSource{Pattern: pattern} }

func (s *FileSource) Name() string { return "file:" + s.Pattern }

func (s *FileSource) Open(_ context.Context, session time.Time) (io.ReadCloser, string, error) {
	p := Expand(s.Pattern, session)
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%s: %w", p, ErrNotPublished)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", p, err)
	}
	return unwrapZip(filepath.Base(p), f)
}
