// Package persist stores saved scopes so they survive process restarts.
//
// Repositories deal in opaque bytes produced by phlux.Codec.Marshal; Save and
// Load glue the two together.
package persist

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/pkg/phlux"
)

// Repository stores encoded bundles by scope key.
type Repository interface {
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key phlux.Key, data []byte) error
	// Get returns the data stored under key or an ErrCodeBundleNotFound error.
	Get(ctx context.Context, key phlux.Key) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key phlux.Key) error
	Close() error
}

// Lister is implemented by repositories that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]phlux.Key, error)
}

const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// Open returns the repository for backend rooted at dir.
func Open(backend, dir string) (Repository, error) {
	switch backend {
	case "", BackendFile:
		return NewFileRepository(dir)
	case BackendPebble:
		return NewPebbleRepository(dir)
	}
	return nil, errors.ConfigInvalid(fmt.Sprintf("unknown persistence backend '%s'", backend)).
		WithDetail("backend", backend)
}

// Save encodes the scope of h and stores it.
func Save[S any](ctx context.Context, repo Repository, codec *phlux.Codec, h *phlux.Handle[S]) error {
	bundle, err := h.Save(codec)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(bundle)
	if err != nil {
		return err
	}
	return repo.Put(ctx, bundle.Key, data)
}

// Load fetches and decodes the bundle stored under key.
func Load(ctx context.Context, repo Repository, codec *phlux.Codec, key phlux.Key) (*phlux.Bundle, error) {
	data, err := repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	bundle, err := codec.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if bundle.Key != key {
		return nil, errors.New(errors.ErrCodeCodecFailed, "stored bundle belongs to another scope").
			WithDetail("scope", string(key)).
			WithDetail("found", string(bundle.Key))
	}
	return bundle, nil
}

func checkKey(key phlux.Key) error {
	k := string(key)
	if k == "" || strings.ContainsAny(k, `/\`) || strings.Contains(k, "..") {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid scope key '%s'", k)).
			WithDetail("scope", k)
	}
	return nil
}
