package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i9smart/go-campaigns-client/apierror"
	"github.com/i9smart/go-campaigns-client/token/store"
	"github.com/stretchr/testify/require"
)

func tokenPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "tokens.json")
}

func TestFilePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := tokenPath(t)

	first := store.NewFile(path)
	require.NoError(t, first.SetTokens(ctx, "access-1", "refresh-1"))
	require.NoError(t, first.SetRememberedUsername(ctx, "jane"))

	// A fresh instance on the same path sees the persisted session.
	second := store.NewFile(path)
	access, err := second.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)

	refresh, err := second.RefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", refresh)

	name, err := second.RememberedUsername(ctx)
	require.NoError(t, err)
	require.Equal(t, "jane", name)
}

func TestFileClearKeepsRememberedUsername(t *testing.T) {
	ctx := context.Background()
	f := store.NewFile(tokenPath(t))

	require.NoError(t, f.SetTokens(ctx, "a", "r"))
	require.NoError(t, f.SetRememberedUsername(ctx, "jane"))
	require.NoError(t, f.Clear(ctx))

	access, err := f.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
	refresh, err := f.RefreshToken(ctx)
	require.NoError(t, err)
	require.Empty(t, refresh)

	name, err := f.RememberedUsername(ctx)
	require.NoError(t, err)
	require.Equal(t, "jane", name)
}

func TestFileMissingIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := store.NewFile(tokenPath(t))

	access, err := f.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
}

func TestFileCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := tokenPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	f := store.NewFile(path)
	_, err := f.AccessToken(ctx)
	require.ErrorIs(t, err, apierror.ErrTokenFileCorrupt)

	// Clear must still succeed so a broken session can be torn down.
	require.NoError(t, f.Clear(ctx))
	access, err := f.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
}

// Two File instances on the same path model two portal processes sharing a
// session: a write in one shows up as watch events in the other.
func TestFileWatchSeesExternalChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := tokenPath(t)
	local := store.NewFile(path, store.WithPollInterval(10*time.Millisecond))
	other := store.NewFile(path)

	events := local.Watch(ctx)

	require.NoError(t, other.SetTokens(ctx, "a", "r"))

	seen := map[string]bool{}
	for len(seen) < 2 {
		e := waitEvent(t, events)
		require.True(t, e.Present)
		seen[e.Key] = true
	}
	require.True(t, seen[store.KeyAccessToken])
	require.True(t, seen[store.KeyRefreshToken])

	require.NoError(t, other.Clear(ctx))

	e := waitEvent(t, events)
	require.False(t, e.Present)
}
