// Package auth orchestrates the authenticated session: proactive token
// renewal, session state transitions, and synchronization with other
// processes sharing the same token store.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i9smart/go-campaigns-client/token"
	"github.com/i9smart/go-campaigns-client/token/store"
)

const (
	// minRenewalLead is the floor on how early a token is renewed before it
	// expires.
	minRenewalLead = 2 * time.Minute
	// renewalLeadFraction scales the lead with the token lifetime: long-lived
	// tokens renew when 20% of their life remains.
	renewalLeadFraction = 0.2
	// refreshRetryDelay spaces out renewal retries while an unexpired token is
	// still in hand.
	refreshRetryDelay = 30 * time.Second
	// wakeRenewalWindow is how close to expiry a token must be, after the
	// process wakes from a suspend, for an immediate renewal.
	wakeRenewalWindow = 5 * time.Minute
	// wakeCheckInterval is the cadence of the wall-clock jump monitor.
	wakeCheckInterval = 30 * time.Second
)

// renewalDelay returns how long to wait before renewing a token that has
// remaining lifetime left. The result is zero when the renewal point is
// already past.
func renewalDelay(remaining time.Duration) time.Duration {
	lead := time.Duration(float64(remaining) * renewalLeadFraction)
	if lead < minRenewalLead {
		lead = minRenewalLead
	}
	delay := remaining - lead
	if delay < 0 {
		delay = 0
	}
	return delay
}

// RenewFunc performs one token renewal against the server.
type RenewFunc func(ctx context.Context) error

// Scheduler arms a timer against the access token's expiry and renews the
// token shortly before it lapses. Renewal failures retry on a fixed delay for
// as long as the current token is still valid; once it expires the scheduler
// reports fatally through the registered callback and disarms.
type Scheduler struct {
	store   store.Store
	renew   RenewFunc
	onFatal func()

	logger       zerolog.Logger
	nowFunc      func() time.Time
	retryDelay   time.Duration
	wakeInterval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(l zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithSchedulerNowFunc sets the clock used for expiry math (for tests).
func WithSchedulerNowFunc(fn func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.nowFunc = fn }
}

// WithRetryDelay overrides the renewal retry spacing (for tests).
func WithRetryDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithWakeCheckInterval overrides the suspend-monitor cadence (for tests).
func WithWakeCheckInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.wakeInterval = d
		}
	}
}

// NewScheduler creates a Scheduler renewing tokens from st through renew.
// onFatal is invoked when renewal can no longer succeed before expiry; nil is
// allowed.
func NewScheduler(st store.Store, renew RenewFunc, onFatal func(), opts ...SchedulerOption) (*Scheduler, error) {
	if st == nil {
		return nil, errors.New("token store is required")
	}
	if renew == nil {
		return nil, errors.New("renew function is required")
	}

	s := &Scheduler{
		store:        st,
		renew:        renew,
		onFatal:      onFatal,
		logger:       zerolog.Nop(),
		nowFunc:      time.Now,
		retryDelay:   refreshRetryDelay,
		wakeInterval: wakeCheckInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the suspend monitor. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.monitor(s.ctx)
}

// Stop cancels the armed timer and the suspend monitor.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.started = false
}

// Arm reads the stored access token and schedules the next renewal. A missing
// token disarms; a token past its renewal point renews immediately.
func (s *Scheduler) Arm(ctx context.Context) {
	tok, err := s.store.AccessToken(ctx)
	if err != nil || tok == "" {
		if err != nil {
			s.logger.Warn().Err(err).Msg("cannot read access token, renewal disarmed")
		}
		s.Disarm()
		return
	}

	remaining := token.Remaining(tok, s.nowFunc())
	s.armAfter(renewalDelay(remaining))
}

// Disarm cancels any pending renewal.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

// WakeCheck handles a resume from suspend or a return to foreground: when the
// token is close to expiry it renews immediately, otherwise it re-arms from
// the current token.
func (s *Scheduler) WakeCheck(ctx context.Context) {
	tok, err := s.store.AccessToken(ctx)
	if err != nil || tok == "" {
		return
	}
	if token.Remaining(tok, s.nowFunc()) < wakeRenewalWindow {
		s.logger.Debug().Msg("token near expiry after wake, renewing now")
		s.armAfter(0)
		return
	}
	s.Arm(ctx)
}

// armAfter replaces the pending timer with one firing after delay. At most
// one timer is armed at any time.
func (s *Scheduler) armAfter(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.stopTimerLocked()
	ctx := s.ctx
	s.timer = time.AfterFunc(delay, func() { s.fire(ctx) })
	s.logger.Debug().Dur("delay", delay).Msg("token renewal armed")
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// fire performs one renewal attempt and decides what happens next.
func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if err := s.renew(ctx); err != nil {
		s.handleRenewalFailure(ctx, err)
		return
	}
	// renewed; schedule the next cycle from the fresh token
	s.Arm(ctx)
}

func (s *Scheduler) handleRenewalFailure(ctx context.Context, err error) {
	tok, terr := s.store.AccessToken(ctx)
	if terr == nil && tok != "" && !token.IsExpired(tok, s.nowFunc()) {
		s.logger.Warn().Err(err).
			Dur("retry_in", s.retryDelay).
			Msg("token renewal failed, retrying")
		s.armAfter(s.retryDelay)
		return
	}

	s.logger.Error().Err(err).Msg("token renewal failed with no valid token left")
	s.Disarm()
	if s.onFatal != nil {
		s.onFatal()
	}
}

// monitor watches for wall-clock jumps. A tick arriving far later than its
// cadence means the process was suspended; the token may have aged past its
// renewal point while no timer could fire.
func (s *Scheduler) monitor(ctx context.Context) {
	ticker := time.NewTicker(s.wakeInterval)
	defer ticker.Stop()

	last := s.nowFunc()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.nowFunc()
			if now.Sub(last) > 2*s.wakeInterval {
				s.logger.Info().
					Dur("gap", now.Sub(last)).
					Msg("clock jump detected, checking token")
				s.WakeCheck(ctx)
			}
			last = now
		}
	}
}
