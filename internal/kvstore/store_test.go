package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behavior every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "authToken")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "authToken", "T1"))
	require.NoError(t, s.Set(ctx, "userData", `{"id":"U1"}`))

	v, err := s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, "T1", v)

	require.NoError(t, s.Set(ctx, "authToken", "T2"))
	v, err = s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, "T2", v)

	require.NoError(t, s.Delete(ctx, "authToken"))
	require.NoError(t, s.Delete(ctx, "authToken"))
	_, err = s.Get(ctx, "authToken")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err = s.Get(ctx, "userData")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"U1"}`, v)

	assert.Error(t, s.Set(ctx, " ", "x"))
}

// =============================================================================
// Memory Tests
// =============================================================================

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	assert.Equal(t, 1, m.Len())
}

// =============================================================================
// File Tests
// =============================================================================

func TestFile(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "nested", "session.json"))
	require.NoError(t, err)
	exerciseStore(t, f)
}

func TestFile_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	first, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "authToken", "T1"))

	second, err := NewFile(path)
	require.NoError(t, err)
	v, err := second.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, "T1", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	f, err := NewFile(path)
	require.NoError(t, err)
	_, err = f.Get(context.Background(), "authToken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewFile_RequiresPath(t *testing.T) {
	_, err := NewFile("")
	assert.Error(t, err)
}

// =============================================================================
// Open Tests
// =============================================================================

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Config{Driver: "FILE", Path: filepath.Join(t.TempDir(), "kv.json")})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)
	assert.NoError(t, Close(s))

	_, err = Open(ctx, Config{Driver: "etcd"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: DriverPostgres})
	assert.Error(t, err)
}
