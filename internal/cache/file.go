package cache

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

type FileCache struct {
	fs  afero.Fs
	Dir string
}

var _ ListCache = (*FileCache)(nil)

func NewFileCache(dir string) *FileCache {
	return NewFileCacheFs(afero.NewOsFs(), dir)
}

// NewFileCacheFs is NewFileCache over an arbitrary filesystem, mostly so tests
// can use afero.NewMemMapFs.
func NewFileCacheFs(fsys afero.Fs, dir string) *FileCache {
	return &FileCache{fs: fsys, Dir: dir}
}

func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.Dir, filepath.FromSlash(key))
}

func (fc *FileCache) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := fc.fs.Open(fc.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (fc *FileCache) Exists(_ context.Context, key string) (bool, error) {
	ok, err := afero.Exists(fc.fs, fc.path(key))
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (fc *FileCache) Put(_ context.Context, key, value string, opts PutOptions) error {
	filePath := fc.path(key)
	if err := fc.fs.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	if opts.Condition == PutIfNoneMatch {
		f, err := fc.fs.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				return ErrAlreadyExists
			}
			return err
		}
		if _, err := f.WriteString(value); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	// write beside the target and rename so readers see old or new, never half
	tmp, err := afero.TempFile(fc.fs, filepath.Dir(filePath), "."+filepath.Base(filePath)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = fc.fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fc.fs.Remove(tmp.Name())
		return err
	}
	return fc.fs.Rename(tmp.Name(), filePath)
}

func (fc *FileCache) List(_ context.Context, prefix string, _ string) ([]string, error) {
	var keys []string
	err := afero.Walk(fc.fs, fc.Dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(fc.Dir, p)
		if err != nil {
			return err
		}
		key := path.Clean(filepath.ToSlash(rel))
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
