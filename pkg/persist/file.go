package persist

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/pkg/phlux"
)

const fileSuffix = ".scope"

// FileRepository keeps one file per scope in a directory.
type FileRepository struct {
	dir string
}

// NewFileRepository creates dir if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.PersistFailed("create directory", dir, err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(key phlux.Key) string {
	return filepath.Join(r.dir, string(key)+fileSuffix)
}

// Put writes through a temporary file so readers never see a partial bundle.
func (r *FileRepository) Put(_ context.Context, key phlux.Key, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(r.dir, "."+string(key)+"-*")
	if err != nil {
		return errors.PersistFailed("put", string(key), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.PersistFailed("put", string(key), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.PersistFailed("put", string(key), err)
	}
	if err := os.Rename(tmp.Name(), r.path(key)); err != nil {
		return errors.PersistFailed("put", string(key), err)
	}
	return nil
}

func (r *FileRepository) Get(_ context.Context, key phlux.Key) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.BundleNotFound(string(key))
		}
		return nil, errors.PersistFailed("get", string(key), err)
	}
	return data, nil
}

func (r *FileRepository) Delete(_ context.Context, key phlux.Key) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(r.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.PersistFailed("delete", string(key), err)
	}
	return nil
}

// Keys lists stored scopes in ascending order.
func (r *FileRepository) Keys(_ context.Context) ([]phlux.Key, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errors.PersistFailed("list", r.dir, err)
	}
	var keys []phlux.Key
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		keys = append(keys, phlux.Key(strings.TrimSuffix(name, fileSuffix)))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func (r *FileRepository) Close() error {
	return nil
}
