package auth_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/i9smart/go-campaigns-client/auth"
	"github.com/i9smart/go-campaigns-client/token/store"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	claims := jwtlib.MapClaims{
		"sub":  subject,
		"exp":  exp.Unix(),
		"iat":  time.Now().Unix(),
		"type": "access",
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestRenewalDelay(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		want      time.Duration
	}{
		{"long lived token renews at 20 percent left", 25 * time.Minute, 20 * time.Minute},
		{"short token renews immediately", time.Minute, 0},
		{"lead never shrinks below two minutes", 8 * time.Minute, 6 * time.Minute},
		{"already expired renews immediately", -time.Minute, 0},
		{"exactly at the floor", 2 * time.Minute, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, auth.RenewalDelayForTest(tt.remaining))
		})
	}
}

func TestSchedulerRenewsWhenDue(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(time.Minute)), "r1"))

	var renewals int32
	renew := func(ctx context.Context) error {
		atomic.AddInt32(&renewals, 1)
		return st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(30*time.Minute)), "r2")
	}

	s, err := auth.NewScheduler(st, renew, nil)
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()
	s.Arm(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&renewals) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// the fresh 30 minute token re-arms far in the future; no further renewals
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&renewals))
}

func TestSchedulerRetriesWhileTokenValid(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(time.Minute)), "r1"))

	var renewals int32
	renew := func(context.Context) error {
		atomic.AddInt32(&renewals, 1)
		return errors.New("server unavailable")
	}

	var fatal atomic.Bool
	s, err := auth.NewScheduler(st, renew, func() { fatal.Store(true) },
		auth.WithRetryDelay(20*time.Millisecond))
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()
	s.Arm(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&renewals) >= 3
	}, 2*time.Second, 10*time.Millisecond)
	require.False(t, fatal.Load())
}

func TestSchedulerFatalWhenTokenExpired(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(-time.Minute)), "r1"))

	renew := func(context.Context) error { return errors.New("refresh rejected") }

	var fatal atomic.Bool
	s, err := auth.NewScheduler(st, renew, func() { fatal.Store(true) })
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()
	s.Arm(ctx)

	require.Eventually(t, fatal.Load, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerDisarm(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(time.Minute)), "r1"))

	var renewals int32
	renew := func(context.Context) error {
		atomic.AddInt32(&renewals, 1)
		return nil
	}

	s, err := auth.NewScheduler(st, renew, nil)
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()
	s.Arm(ctx)
	s.Disarm()

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&renewals))
}

func TestSchedulerStartIdempotent(t *testing.T) {
	st := store.NewMemory()
	s, err := auth.NewScheduler(st, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx)
	s.Stop()
	s.Stop()
}

func TestSchedulerValidation(t *testing.T) {
	_, err := auth.NewScheduler(nil, func(context.Context) error { return nil }, nil)
	require.Error(t, err)

	_, err = auth.NewScheduler(store.NewMemory(), nil, nil)
	require.Error(t, err)
}

func TestWakeCheckRenewsNearExpiry(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(3*time.Minute)), "r1"))

	var renewals int32
	renew := func(ctx context.Context) error {
		atomic.AddInt32(&renewals, 1)
		return st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(30*time.Minute)), "r2")
	}

	s, err := auth.NewScheduler(st, renew, nil)
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()

	s.WakeCheck(ctx)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&renewals) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWakeCheckLeavesHealthyTokenAlone(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.SetTokens(ctx, mintToken(t, "carol", time.Now().Add(time.Hour)), "r1"))

	var renewals int32
	s, err := auth.NewScheduler(st, func(context.Context) error {
		atomic.AddInt32(&renewals, 1)
		return nil
	}, nil)
	require.NoError(t, err)
	s.Start(ctx)
	defer s.Stop()

	s.WakeCheck(ctx)
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&renewals))
}
