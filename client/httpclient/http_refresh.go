package httpclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/relays"
)

type refreshResult struct {
	creds dto.Credentials
	err   error
}

type waiter struct {
	id string
	ch chan refreshResult
}

// RefreshCoordinator serialises credential refresh. While one refresh is in
// flight every further expired request queues behind it and is released in
// arrival order with the result.
type RefreshCoordinator struct {
	store    dto.SessionStore
	provider dto.AuthProvider
	signal   *SessionSignal
	relay    relayDTO.RelayInterface
	timeout  time.Duration
	now      func() time.Time

	mu         sync.Mutex
	refreshing bool
	waiters    []waiter
	refreshes  int64
	failures   int64
	last       time.Time
}

type CoordinatorOption func(r *RefreshCoordinator)

// WithRefreshTimeout bounds the refresh call and therefore every waiter.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(r *RefreshCoordinator) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(r *RefreshCoordinator) { r.now = now }
}

func NewRefreshCoordinator(store dto.SessionStore, provider dto.AuthProvider, signal *SessionSignal, relay relayDTO.RelayInterface, opts ...CoordinatorOption) *RefreshCoordinator {
	if signal == nil {
		signal = NewSessionSignal()
	}
	if relay == nil {
		relay = relays.ProvideRelay()
	}
	r := &RefreshCoordinator{
		store:    store,
		provider: provider,
		signal:   signal,
		relay:    relay,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Await is called after a request carrying sentAccess was rejected as expired.
// It returns the credential to replay with, refreshing at most once for any
// number of concurrent callers.
func (r *RefreshCoordinator) Await(ctx context.Context, id string, sentAccess string) (dto.Credentials, error) {
	r.mu.Lock()
	if r.refreshing {
		w := waiter{id: id, ch: make(chan refreshResult, 1)}
		r.waiters = append(r.waiters, w)
		position := len(r.waiters)
		r.mu.Unlock()

		refreshWaiters.Inc()
		r.relay.Debug(relays.RlyWaiter{ID: id, Position: position})
		// The slot stays queued either way; resolve never blocks on it.
		select {
		case res := <-w.ch:
			return res.creds, res.err
		case <-ctx.Done():
			return dto.Credentials{}, ctx.Err()
		}
	}

	current, err := r.store.Get(ctx)
	if err != nil {
		r.mu.Unlock()
		return dto.Credentials{}, fmt.Errorf("read session: %w", err)
	}
	// A refresh completed while this request was in flight.
	if current.HasAccess() && current.AccessToken != sentAccess {
		r.mu.Unlock()
		return current, nil
	}
	if !current.HasRefresh() {
		r.mu.Unlock()
		r.invalidate("no refresh token")
		return dto.Credentials{}, dto.ErrNoRefreshToken
	}
	r.refreshing = true
	r.mu.Unlock()

	creds, err := r.refresh(ctx, current)
	r.resolve(creds, err)
	return creds, err
}

// refresh runs detached from the caller's cancellation so one caller giving
// up does not fail the whole queue.
func (r *RefreshCoordinator) refresh(ctx context.Context, current dto.Credentials) (dto.Credentials, error) {
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	r.relay.Info(relays.RlyRefresh{Status: "started", Msg: "refreshing credentials"})
	started := r.now()
	issued, err := r.provider.Refresh(refreshCtx, current)
	refreshDuration.Observe(r.now().Sub(started).Seconds())

	if err == nil && !issued.HasAccess() {
		err = fmt.Errorf("response carried no access token")
	}
	if err != nil {
		r.clear(refreshCtx)
		return dto.Credentials{}, fmt.Errorf("%w: %w", dto.ErrRefreshFailed, err)
	}

	next := current.Rotate(issued)
	if err := r.store.Set(refreshCtx, next); err != nil {
		r.clear(refreshCtx)
		return dto.Credentials{}, fmt.Errorf("%w: store session: %w", dto.ErrRefreshFailed, err)
	}
	r.signal.Arm()
	return next, nil
}

// clear drops the pair once a refresh has failed; the session is over either way.
func (r *RefreshCoordinator) clear(ctx context.Context) {
	if err := r.store.Clear(ctx); err != nil {
		r.relay.Warn(relays.RlyNetLog{Msg: fmt.Sprintf("clear session after failed refresh: %v", err)})
	}
}

// resolve drains the queue in one step and releases waiters in FIFO order.
func (r *RefreshCoordinator) resolve(creds dto.Credentials, err error) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.refreshing = false
	if err != nil {
		r.failures++
	} else {
		r.refreshes++
		r.last = r.now()
	}
	r.mu.Unlock()

	if err != nil {
		refreshesTotal.WithLabelValues(relays.RlyRefreshFail).Inc()
		r.relay.Warn(relays.RlyRefresh{
			Status:  relays.RlyRefreshFail,
			Waiters: len(waiters),
			Msg:     "credential refresh failed",
			Err:     err,
		})
		r.invalidate("refresh failed")
	} else {
		refreshesTotal.WithLabelValues(relays.RlyRefreshOK).Inc()
		r.relay.Info(relays.RlyRefresh{
			Status:  relays.RlyRefreshOK,
			Waiters: len(waiters),
			Msg:     "credentials refreshed",
		})
	}

	for i, w := range waiters {
		w.ch <- refreshResult{creds: creds, err: err}
		refreshWaiters.Dec()
		r.relay.Debug(relays.RlyWaiter{ID: w.id, Position: i + 1, Resolved: true, Failed: err != nil})
	}
}

func (r *RefreshCoordinator) invalidate(reason string) {
	if r.signal.Fire() {
		invalidationsTotal.Inc()
		r.relay.Warn(relays.RlySession{Reason: reason})
	}
}

// Establish stores a pair obtained outside a refresh (login) and re-arms the signal.
func (r *RefreshCoordinator) Establish(ctx context.Context, creds dto.Credentials) error {
	if err := r.store.Set(ctx, creds); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	r.signal.Arm()
	return nil
}

func (r *RefreshCoordinator) Store() dto.SessionStore {
	return r.store
}

func (r *RefreshCoordinator) Signal() *SessionSignal {
	return r.signal
}

// Waiting reports the current queue depth.
func (r *RefreshCoordinator) Waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

func (r *RefreshCoordinator) Stats() dto.RefreshStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dto.RefreshStats{
		Refreshing:    r.refreshing,
		Waiting:       len(r.waiters),
		Refreshes:     r.refreshes,
		Failures:      r.failures,
		Invalidations: r.signal.Fired(),
		LastRefresh:   r.last,
	}
}
