package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i9smart/go-campaigns-client/api"
	"github.com/i9smart/go-campaigns-client/apierror"
	"github.com/i9smart/go-campaigns-client/token"
	"github.com/i9smart/go-campaigns-client/token/store"
	"github.com/i9smart/go-campaigns-client/users"
)

// State is the session's authentication state.
type State string

const (
	// StateUnauthenticated means no usable session exists.
	StateUnauthenticated State = "unauthenticated"
	// StateChecking means a login or session restore is in flight.
	StateChecking State = "checking"
	// StateAuthenticated means a valid session with a known user exists.
	StateAuthenticated State = "authenticated"
)

// Snapshot is a point-in-time view of the session. User is non-nil only when
// State is StateAuthenticated.
type Snapshot struct {
	State State
	User  *users.User
}

// Coordinator owns the session lifecycle: restoring a session from stored
// tokens at startup, logging in and out, renewing tokens through the
// Scheduler, reacting to token changes made by other processes sharing the
// store, and keeping active users signed in.
type Coordinator struct {
	client  *api.Client
	store   store.Store
	sched   *Scheduler
	logger  zerolog.Logger
	nowFunc func() time.Time

	mu       sync.RWMutex
	state    State
	user     *users.User
	onChange func(Snapshot)

	activity activityTracker

	runMu   sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithNowFunc sets the clock used for expiry and activity math (for tests).
func WithNowFunc(fn func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.nowFunc = fn }
}

// NewCoordinator creates a Coordinator over client and st. The coordinator
// registers itself as the client's auth-failure handler: an unrecoverable 401
// anywhere tears the session down.
func NewCoordinator(client *api.Client, st store.Store, opts ...CoordinatorOption) (*Coordinator, error) {
	if client == nil {
		return nil, errors.New("api client is required")
	}
	if st == nil {
		return nil, errors.New("token store is required")
	}

	c := &Coordinator{
		client:  client,
		store:   st,
		logger:  zerolog.Nop(),
		nowFunc: time.Now,
		state:   StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(c)
	}

	sched, err := NewScheduler(st, c.renewTokens, c.forceLogout,
		WithSchedulerLogger(c.logger),
		WithSchedulerNowFunc(c.nowFunc),
	)
	if err != nil {
		return nil, err
	}
	c.sched = sched

	client.SetAuthFailureHandler(c.forceLogout)
	return c, nil
}

// Start launches the scheduler, the store watcher and the activity loop, then
// attempts to restore a session from stored tokens. Idempotent.
func (c *Coordinator) Start(ctx context.Context) {
	c.runMu.Lock()
	if c.started {
		c.runMu.Unlock()
		return
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.runMu.Unlock()

	c.sched.Start(runCtx)

	c.wg.Add(2)
	go c.watchStore(runCtx)
	go c.activityLoop(runCtx)

	c.CheckAuth(runCtx)
}

// Stop halts all background work. The session state is left as-is; stored
// tokens are not touched.
func (c *Coordinator) Stop() {
	c.runMu.Lock()
	if !c.started {
		c.runMu.Unlock()
		return
	}
	c.started = false
	cancel := c.cancel
	c.cancel = nil
	c.runMu.Unlock()

	c.sched.Stop()
	cancel()
	c.wg.Wait()
}

// Snapshot returns the current session state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{State: c.state, User: c.user}
}

// OnChange registers the callback invoked after every state transition. Only
// one callback is held; registering replaces the previous one.
func (c *Coordinator) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Touch records a user interaction for activity-based renewal.
func (c *Coordinator) Touch() {
	c.activity.touch(c.nowFunc())
}

// WakeCheck tells the scheduler the process just returned to the foreground
// or resumed from suspend.
func (c *Coordinator) WakeCheck(ctx context.Context) {
	c.sched.WakeCheck(ctx)
}

// Login exchanges credentials for a session. On success the user profile is
// fetched, renewal is armed, and the state becomes Authenticated. On failure
// no tokens are stored and the state returns to Unauthenticated.
func (c *Coordinator) Login(ctx context.Context, creds api.Credentials, rememberUsername bool) error {
	c.setState(StateChecking, nil)

	if err := c.client.Login(ctx, creds); err != nil {
		c.setState(StateUnauthenticated, nil)
		return err
	}

	if rememberUsername {
		if err := c.store.SetRememberedUsername(ctx, creds.Username); err != nil {
			c.logger.Warn().Err(err).Msg("cannot remember username")
		}
	}

	user, err := c.client.Me(ctx)
	if err != nil {
		if !apierror.IsTransient(err) {
			c.logger.Error().Err(err).Msg("profile fetch after login rejected")
			c.clearTokens(ctx)
			c.setState(StateUnauthenticated, nil)
			return err
		}
		// the token pair is good; carry the claims until the server is back
		c.logger.Warn().Err(err).Msg("profile fetch after login delayed by transport trouble")
		user = c.userFromToken(ctx)
	}
	if user == nil {
		c.logger.Error().Msg("no usable profile after login")
		c.clearTokens(ctx)
		c.setState(StateUnauthenticated, nil)
		return err
	}

	c.sched.Arm(ctx)
	c.setState(StateAuthenticated, user)
	c.logger.Info().Str("username", creds.Username).Msg("logged in")
	return nil
}

// Logout ends the session. The server call is best effort; local teardown
// always happens.
func (c *Coordinator) Logout(ctx context.Context) {
	if err := c.client.Logout(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("server logout failed, clearing locally")
	}
	c.teardown(ctx)
	c.logger.Info().Msg("logged out")
}

// CheckAuth restores or re-validates the session from stored tokens. It is
// called at startup and whenever another process writes tokens to the store.
func (c *Coordinator) CheckAuth(ctx context.Context) {
	tok, err := c.store.AccessToken(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cannot read access token")
		c.setState(StateUnauthenticated, nil)
		return
	}
	if tok == "" {
		refresh, rerr := c.store.RefreshToken(ctx)
		if rerr != nil || refresh == "" {
			c.setState(StateUnauthenticated, nil)
			return
		}
	}

	// fast path: already authenticated with a valid token and a known user
	snap := c.Snapshot()
	if snap.State == StateAuthenticated && snap.User != nil &&
		tok != "" && !token.IsExpired(tok, c.nowFunc()) {
		c.sched.Arm(ctx)
		return
	}

	c.setState(StateChecking, nil)

	if tok == "" || token.IsExpired(tok, c.nowFunc()) {
		if _, err := c.client.RefreshTokens(ctx); err != nil {
			if apierror.IsTransient(err) {
				c.logger.Warn().Err(err).Msg("session restore delayed by transport trouble")
			} else {
				c.logger.Info().Err(err).Msg("stored session no longer valid")
				c.clearTokens(ctx)
			}
			c.setState(StateUnauthenticated, nil)
			return
		}
	}

	user, err := c.client.Me(ctx)
	if err != nil {
		if apierror.IsTransient(err) {
			// the token is good; carry the claims until the server is back
			if claimed := c.userFromToken(ctx); claimed != nil {
				c.sched.Arm(ctx)
				c.setState(StateAuthenticated, claimed)
				return
			}
		}
		c.logger.Info().Err(err).Msg("stored session rejected by server")
		c.clearTokens(ctx)
		c.setState(StateUnauthenticated, nil)
		return
	}

	c.sched.Arm(ctx)
	c.setState(StateAuthenticated, user)
	c.logger.Info().Str("username", user.Username).Msg("session restored")
}

// Refresh forces an immediate token renewal. An unrecoverable failure tears
// the session down.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if _, err := c.client.RefreshTokens(ctx); err != nil {
		if !apierror.IsTransient(err) {
			c.forceLogout()
		}
		return err
	}
	c.sched.Arm(ctx)
	return nil
}

// RememberedUsername returns the username stored at the last login that asked
// for it.
func (c *Coordinator) RememberedUsername(ctx context.Context) (string, error) {
	return c.store.RememberedUsername(ctx)
}

// renewTokens is the scheduler's renewal hook.
func (c *Coordinator) renewTokens(ctx context.Context) error {
	_, err := c.client.RefreshTokens(ctx)
	return err
}

// forceLogout tears the session down without a server round trip. It serves
// as the terminal path for unrecoverable 401s and fatal renewal failures.
func (c *Coordinator) forceLogout() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.teardown(ctx)
	c.logger.Info().Msg("session closed after authorization failure")
}

func (c *Coordinator) teardown(ctx context.Context) {
	c.sched.Disarm()
	c.clearTokens(ctx)
	c.setState(StateUnauthenticated, nil)
}

func (c *Coordinator) clearTokens(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("cannot clear stored tokens")
	}
}

// userFromToken builds a minimal profile from the token claims for use when
// the profile endpoint is unreachable.
func (c *Coordinator) userFromToken(ctx context.Context) *users.User {
	tok, err := c.store.AccessToken(ctx)
	if err != nil || tok == "" {
		return nil
	}
	claims := token.Decode(tok)
	if claims == nil {
		return nil
	}
	return &users.User{
		ID:       claims.Subject,
		Username: claims.Subject,
		Email:    claims.Subject,
		Role:     users.Role(claims.Role),
		IsActive: true,
	}
}

// watchStore reacts to token changes made by other processes sharing the
// store: another tab logging in picks the session up here, another tab
// logging out ends it here.
func (c *Coordinator) watchStore(ctx context.Context) {
	defer c.wg.Done()

	events := c.store.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Key != store.KeyAccessToken && ev.Key != store.KeyRefreshToken {
				continue
			}
			if !ev.Present {
				if c.Snapshot().State == StateUnauthenticated {
					continue // our own teardown echoing back
				}
				c.logger.Info().Msg("tokens removed externally, ending session")
				c.sched.Disarm()
				c.setState(StateUnauthenticated, nil)
				continue
			}
			c.logger.Debug().Str("key", ev.Key).Msg("tokens changed externally")
			c.CheckAuth(ctx)
		}
	}
}

// activityLoop renews the token proactively while the user keeps
// interacting.
func (c *Coordinator) activityLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(activityCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Snapshot().State != StateAuthenticated {
				continue
			}
			if !c.activity.activeWithin(activityWindow, c.nowFunc()) {
				continue
			}
			if err := c.renewTokens(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("activity renewal failed")
				continue
			}
			c.sched.Arm(ctx)
		}
	}
}

func (c *Coordinator) setState(state State, user *users.User) {
	c.mu.Lock()
	c.state = state
	c.user = user
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(Snapshot{State: state, User: user})
	}
}
