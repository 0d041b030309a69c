package persist

import (
	"context"

	"github.com/cockroachdb/pebble"
	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/pkg/phlux"
)

const pebblePrefix = "scope/"

// PebbleRepository keeps saved scopes in a pebble database.
type PebbleRepository struct {
	db *pebble.DB
}

// NewPebbleRepository opens (or creates) the database in dir.
func NewPebbleRepository(dir string) (*PebbleRepository, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.PersistFailed("open", dir, err)
	}
	return &PebbleRepository{db: db}, nil
}

func pebbleKey(key phlux.Key) []byte {
	return []byte(pebblePrefix + string(key))
}

func (r *PebbleRepository) Put(_ context.Context, key phlux.Key, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.db.Set(pebbleKey(key), data, pebble.Sync); err != nil {
		return errors.PersistFailed("put", string(key), err)
	}
	return nil
}

func (r *PebbleRepository) Get(_ context.Context, key phlux.Key) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	val, closer, err := r.db.Get(pebbleKey(key))
	if err == pebble.ErrNotFound {
		return nil, errors.BundleNotFound(string(key))
	}
	if err != nil {
		return nil, errors.PersistFailed("get", string(key), err)
	}
	defer closer.Close()

	// val is only valid until closer is closed
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (r *PebbleRepository) Delete(_ context.Context, key phlux.Key) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.db.Delete(pebbleKey(key), pebble.Sync); err != nil {
		return errors.PersistFailed("delete", string(key), err)
	}
	return nil
}

func (r *PebbleRepository) Close() error {
	return r.db.Close()
}
