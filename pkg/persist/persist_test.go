package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Text string `yaml:"text" json:"text" toml:"text"`
}

func (note) Kind() string { return "test.note" }

type idle struct {
	Name string `yaml:"name" json:"name" toml:"name"`
}

func (idle) Kind() string { return "test.idle" }

func (idle) Execute(phlux.Completion, phlux.Dismiss) phlux.Cancel { return nil }

func newCodec(format phlux.Format) *phlux.Codec {
	c := phlux.NewCodec(format)
	phlux.RegisterState[note](c)
	phlux.RegisterTask[idle](c)
	return c
}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	file, err := Open(BackendFile, filepath.Join(t.TempDir(), "file"))
	require.NoError(t, err)
	pebble, err := Open(BackendPebble, filepath.Join(t.TempDir(), "pebble"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = file.Close()
		_ = pebble.Close()
	})
	return map[string]Repository{BackendFile: file, BackendPebble: pebble}
}

func TestRepositoryContract(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(ctx, "missing")
			assert.True(t, errors.Is(err, errors.ErrCodeBundleNotFound))

			require.NoError(t, repo.Put(ctx, "a", []byte("first")))
			require.NoError(t, repo.Put(ctx, "a", []byte("second")))

			data, err := repo.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "second", string(data))

			require.NoError(t, repo.Delete(ctx, "a"))
			require.NoError(t, repo.Delete(ctx, "a"), "deleting twice is fine")
			_, err = repo.Get(ctx, "a")
			assert.True(t, errors.Is(err, errors.ErrCodeBundleNotFound))
		})
	}
}

func TestRepositoryRejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []phlux.Key{"", "a/b", `a\b`, ".."} {
				err := repo.Put(ctx, key, []byte("x"))
				assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "key %q", key)
			}
		})
	}
}

func TestFileRepositoryKeys(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, k := range []phlux.Key{"charlie", "alpha", "bravo"} {
		require.NoError(t, repo.Put(ctx, k, []byte(k)))
	}
	require.NoError(t, repo.Delete(ctx, "bravo"))

	keys, err = repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []phlux.Key{"alpha", "charlie"}, keys)

	var _ Lister = repo
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir())
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			codec := newCodec(phlux.FormatJSON)

			origin := phlux.NewStore()
			h := phlux.New(origin, note{Text: "hello"})
			h.Background(4, idle{Name: "watch"})
			require.NoError(t, Save(ctx, repo, codec, h))

			bundle, err := Load(ctx, repo, codec, h.Key())
			require.NoError(t, err)
			assert.Equal(t, h.Key(), bundle.Key)

			restored, err := phlux.Restore[note](phlux.NewStore(), codec, bundle)
			require.NoError(t, err)
			assert.Equal(t, note{Text: "hello"}, restored.MustState())
			assert.True(t, restored.Running(4))
		})
	}
}

func TestLoadDetectsForeignBundle(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(phlux.FormatYAML)
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	h := phlux.New(phlux.NewStore(), note{Text: "x"})
	bundle, err := h.Save(codec)
	require.NoError(t, err)
	data, err := codec.Marshal(bundle)
	require.NoError(t, err)
	require.NoError(t, repo.Put(ctx, "elsewhere", data))

	_, err = Load(ctx, repo, codec, "elsewhere")
	assert.True(t, errors.Is(err, errors.ErrCodeCodecFailed))
}

func TestSaveRequiresLiveScope(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	h := phlux.New(phlux.NewStore(), note{})
	h.Remove()
	err = Save(ctx, repo, newCodec(phlux.FormatYAML), h)
	assert.True(t, errors.Is(err, errors.ErrCodeScopeNotFound))
}
