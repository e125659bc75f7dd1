package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i9smart/go-campaigns-client/api"
	"github.com/i9smart/go-campaigns-client/apierror"
	"github.com/i9smart/go-campaigns-client/auth"
	"github.com/i9smart/go-campaigns-client/token/store"
)

const (
	testUsername = "carol"
	testPassword = "s3cret"
)

// portalFixture is a fake campaigns portal plus a coordinator wired to it.
type portalFixture struct {
	mux     *http.ServeMux
	server  *httptest.Server
	store   *store.Memory
	client  *api.Client
	coord   *auth.Coordinator
	changes chan auth.Snapshot

	refreshCalls int32
	rejectLogin  atomic.Bool
	rejectAll    atomic.Bool
	stallMe      atomic.Bool
}

func setupPortalFixture(t *testing.T, opts ...api.Option) *portalFixture {
	t.Helper()

	f := &portalFixture{
		mux:     http.NewServeMux(),
		store:   store.NewMemory(),
		changes: make(chan auth.Snapshot, 32),
	}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	f.mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if f.rejectLogin.Load() ||
			r.PostForm.Get("username") != testUsername || r.PostForm.Get("password") != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			f.writeJSON(t, w, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		f.writeTokenPair(t, w)
	})
	f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.refreshCalls, 1)
		if f.rejectAll.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.writeTokenPair(t, w)
	})
	f.mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if f.stallMe.Load() {
			time.Sleep(500 * time.Millisecond)
		}
		if f.rejectAll.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.writeJSON(t, w, map[string]any{
			"id": "u-1", "email": "carol@example.com", "username": testUsername,
			"full_name": "Carol Jones", "role": "editor", "is_active": true,
		})
	})
	f.mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	client, err := api.New(f.server.URL, f.store, opts...)
	require.NoError(t, err)
	f.client = client

	coord, err := auth.NewCoordinator(client, f.store)
	require.NoError(t, err)
	coord.OnChange(func(s auth.Snapshot) { f.changes <- s })
	f.coord = coord
	t.Cleanup(coord.Stop)
	return f
}

func (f *portalFixture) writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func (f *portalFixture) writeTokenPair(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	f.writeJSON(t, w, map[string]string{
		"access_token":  mintToken(t, testUsername, time.Now().Add(30*time.Minute)),
		"refresh_token": "refresh-next",
		"token_type":    "bearer",
	})
}

// waitForState drains change notifications until the wanted state appears.
func (f *portalFixture) waitForState(t *testing.T, want auth.State) auth.Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-f.changes:
			if snap.State == want {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q, currently %q", want, f.coord.Snapshot().State)
			return auth.Snapshot{}
		}
	}
}

func TestLoginAuthenticates(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)

	creds := api.Credentials{Username: testUsername, Password: testPassword}
	require.NoError(t, f.coord.Login(ctx, creds, true))

	snap := f.coord.Snapshot()
	require.Equal(t, auth.StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	require.Equal(t, "Carol Jones", snap.User.FullName)

	remembered, err := f.coord.RememberedUsername(ctx)
	require.NoError(t, err)
	require.Equal(t, testUsername, remembered)

	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, access)
}

func TestLoginRejectedStaysUnauthenticated(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)

	err := f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: "wrong"}, false)
	require.Error(t, err)
	require.Equal(t, apierror.CategoryCredential, apierror.CategoryOf(err))
	require.Equal(t, auth.StateUnauthenticated, f.coord.Snapshot().State)

	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)

	remembered, err := f.coord.RememberedUsername(ctx)
	require.NoError(t, err)
	require.Empty(t, remembered)
}

func TestLoginProfileRejectedFailsClosed(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)

	// credentials are accepted but every authenticated call, including the
	// refresh the 401 recovery attempts, is rejected
	f.rejectAll.Store(true)

	err := f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: testPassword}, false)
	require.Error(t, err)

	snap := f.coord.Snapshot()
	require.Equal(t, auth.StateUnauthenticated, snap.State)
	require.Nil(t, snap.User)

	access, serr := f.store.AccessToken(ctx)
	require.NoError(t, serr)
	require.Empty(t, access)
	refresh, serr := f.store.RefreshToken(ctx)
	require.NoError(t, serr)
	require.Empty(t, refresh)
}

func TestLoginProfileFetchTimeoutKeepsSession(t *testing.T) {
	f := setupPortalFixture(t, api.WithTimeout(150*time.Millisecond))
	ctx := context.Background()
	f.coord.Start(ctx)

	// the profile endpoint stalls past the request budget; the token pair is
	// good, so the session stays up on claims alone
	f.stallMe.Store(true)

	require.NoError(t, f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: testPassword}, false))

	snap := f.coord.Snapshot()
	require.Equal(t, auth.StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	require.Equal(t, testUsername, snap.User.Username)

	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, access)
}

func TestStartRestoresStoredSession(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetTokens(ctx,
		mintToken(t, testUsername, time.Now().Add(30*time.Minute)), "refresh-1"))

	f.coord.Start(ctx)

	snap := f.coord.Snapshot()
	require.Equal(t, auth.StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	require.Equal(t, testUsername, snap.User.Username)
}

func TestStartRefreshesExpiredToken(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetTokens(ctx,
		mintToken(t, testUsername, time.Now().Add(-time.Minute)), "refresh-1"))

	f.coord.Start(ctx)

	require.Equal(t, auth.StateAuthenticated, f.coord.Snapshot().State)
	require.EqualValues(t, 1, atomic.LoadInt32(&f.refreshCalls))

	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, access)
}

func TestStartWithEmptyStore(t *testing.T) {
	f := setupPortalFixture(t)
	f.coord.Start(context.Background())
	require.Equal(t, auth.StateUnauthenticated, f.coord.Snapshot().State)
	require.Zero(t, atomic.LoadInt32(&f.refreshCalls))
}

func TestStartWithRejectedSession(t *testing.T) {
	f := setupPortalFixture(t)
	f.rejectAll.Store(true)
	ctx := context.Background()
	require.NoError(t, f.store.SetTokens(ctx,
		mintToken(t, testUsername, time.Now().Add(-time.Minute)), "refresh-1"))

	f.coord.Start(ctx)

	require.Equal(t, auth.StateUnauthenticated, f.coord.Snapshot().State)
	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access, "rejected tokens are cleared")
}

func TestLogoutClearsLocalSession(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)
	require.NoError(t, f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: testPassword}, false))

	f.coord.Logout(ctx)

	require.Equal(t, auth.StateUnauthenticated, f.coord.Snapshot().State)
	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
}

func TestLogoutSurvivesServerFailure(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)
	require.NoError(t, f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: testPassword}, false))

	f.server.Close()
	f.coord.Logout(ctx)

	require.Equal(t, auth.StateUnauthenticated, f.coord.Snapshot().State)
	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
}

func TestExternalTokenRemovalEndsSession(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)
	require.NoError(t, f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: testPassword}, false))

	// another process sharing the store logs out
	require.NoError(t, f.store.Clear(ctx))

	f.waitForState(t, auth.StateUnauthenticated)
}

func TestExternalLoginPicksUpSession(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)
	require.Equal(t, auth.StateUnauthenticated, f.coord.Snapshot().State)

	// another process sharing the store logs in
	require.NoError(t, f.store.SetTokens(ctx,
		mintToken(t, testUsername, time.Now().Add(30*time.Minute)), "refresh-1"))

	snap := f.waitForState(t, auth.StateAuthenticated)
	require.NotNil(t, snap.User)
	require.Equal(t, testUsername, snap.User.Username)
}

func TestManualRefreshFailureTearsDown(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)
	require.NoError(t, f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: testPassword}, false))

	f.rejectAll.Store(true)
	err := f.coord.Refresh(ctx)
	require.Error(t, err)

	f.waitForState(t, auth.StateUnauthenticated)
	access, serr := f.store.AccessToken(ctx)
	require.NoError(t, serr)
	require.Empty(t, access)
}

func TestManualRefreshReArms(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)
	require.NoError(t, f.coord.Login(ctx, api.Credentials{Username: testUsername, Password: testPassword}, false))

	before := atomic.LoadInt32(&f.refreshCalls)
	require.NoError(t, f.coord.Refresh(ctx))
	require.Equal(t, before+1, atomic.LoadInt32(&f.refreshCalls))
	require.Equal(t, auth.StateAuthenticated, f.coord.Snapshot().State)
}

func TestCoordinatorValidation(t *testing.T) {
	st := store.NewMemory()
	client, err := api.New("http://localhost:8000", st)
	require.NoError(t, err)

	_, err = auth.NewCoordinator(nil, st)
	require.Error(t, err)
	_, err = auth.NewCoordinator(client, nil)
	require.Error(t, err)
}

func TestStartIdempotent(t *testing.T) {
	f := setupPortalFixture(t)
	ctx := context.Background()
	f.coord.Start(ctx)
	f.coord.Start(ctx)
	f.coord.Stop()
	f.coord.Stop()
}
