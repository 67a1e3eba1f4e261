package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

var _ core.StorageIterator = (*LocalIterator)(nil)

// LocalIterator walks a directory tree once, on first use, and drains the
// resulting file list with a position cursor.
type LocalIterator struct {
	root    string
	include []string
	builder *ingestion_engine.DocumentBuilder

	files  []string
	pos    int
	loaded bool
	closed bool
}

func NewLocalIterator(root string, include []string, builder *ingestion_engine.DocumentBuilder) (*LocalIterator, error) {
	for _, p := range include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}
	return &LocalIterator{root: root, include: include, builder: builder}, nil
}

func (it *LocalIterator) load(ctx context.Context) error {
	abs, err := filepath.Abs(it.root)
	if err != nil {
		return core.NewBackendError(models.StorageLocal, it.root, err)
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, err := it.matches(abs, path); err != nil || !ok {
			return err
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return core.NewBackendError(models.StorageLocal, it.root, err)
	}

	it.files = files
	it.loaded = true
	logger.FromContext(ctx).Debug("local files listed", "path", abs, "count", len(files))
	return nil
}

func (it *LocalIterator) matches(root, path string) (bool, error) {
	if len(it.include) == 0 {
		return true, nil
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false, err
	}
	rel = filepath.ToSlash(rel)
	for _, p := range it.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true, nil
		}
	}
	return false, nil
}

func (it *LocalIterator) HasNext(ctx context.Context) (bool, error) {
	if it.closed {
		return false, core.ErrClosed
	}
	if !it.loaded {
		if err := it.load(ctx); err != nil {
			return false, err
		}
	}
	return it.pos < len(it.files), nil
}

func (it *LocalIterator) Next(ctx context.Context) (*models.Document, error) {
	ok, err := it.HasNext(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrIteratorExhausted
	}
	path := it.files[it.pos]
	it.pos++
	return it.read(ctx, path)
}

// SingleDocument reads the root path as one file.
func (it *LocalIterator) SingleDocument(ctx context.Context) (*models.Document, error) {
	if it.closed {
		return nil, core.ErrClosed
	}
	abs, err := filepath.Abs(it.root)
	if err != nil {
		return nil, core.NewBackendError(models.StorageLocal, it.root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, core.NewBackendError(models.StorageLocal, it.root, err)
	}
	if info.IsDir() {
		return nil, core.NewBackendError(models.StorageLocal, it.root, fmt.Errorf("is a directory"))
	}
	return it.read(ctx, abs)
}

func (it *LocalIterator) read(ctx context.Context, path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ParseError{Key: path, Err: err}
	}
	return it.builder.Build(ctx, &models.StorageItem{
		Key:       path,
		Name:      filepath.Base(path),
		Directory: filepath.Dir(path),
		Source:    path,
		Data:      data,
	})
}

func (it *LocalIterator) Close() error {
	it.closed = true
	it.files = nil
	return nil
}
