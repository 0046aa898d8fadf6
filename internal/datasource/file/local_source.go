// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"salesdw/internal/etlerr"
)

// Source opens a raw extract for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// Local is a filesystem data source that opens files from the local disk.
type Local struct {
	path    string
	dataset string
}

// NewLocal returns a Local bound to path. dataset labels errors.
func NewLocal(path, dataset string) *Local { return &Local{path: path, dataset: dataset} }

// Name returns the bound path.
func (l *Local) Name() string { return l.path }

// Open opens the configured path for reading.
//
// A pre-canceled context returns ctx.Err() without touching the filesystem.
// A missing file is an etlerr SourceNotFound that still satisfies
// errors.Is(err, fs.ErrNotExist). A directory is rejected the same way.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, etlerr.New(etlerr.SourceNotFound, l.dataset, "read", fmt.Errorf("open %s: %w", l.path, err))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, etlerr.New(etlerr.SourceNotFound, l.dataset, "read", fmt.Errorf("%s is a directory", l.path))
	}
	adviseSequential(f)
	return f, nil
}
