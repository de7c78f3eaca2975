package portals

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-portal-auth"
)

// KeyResolverFunc resolves the signing key of a portal domain.
type KeyResolverFunc func(ctx context.Context, domain string) (*VerificationKey, error)

// KeySet holds the signing key for one portal domain. The key is loaded once
// when the set is created and is immutable afterwards, unless Start is called
// with a refresh interval.
type KeySet struct {
	domain   string
	resolve  KeyResolverFunc
	interval time.Duration
	logger   auth.Logger

	current atomic.Pointer[VerificationKey]

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewKeySet resolves the key of domain and returns a set holding it.
func NewKeySet(ctx context.Context, domain string, resolve KeyResolverFunc, interval time.Duration, logger auth.Logger) (*KeySet, error) {
	if resolve == nil {
		return nil, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
			"provider": "portals",
			"field":    "resolver",
		})
	}

	_, logger = auth.ResolveLogger("portals.keyset", nil, logger)

	key, err := resolve(ctx, domain)
	if err != nil {
		return nil, err
	}

	s := &KeySet{
		domain:   domain,
		resolve:  resolve,
		interval: interval,
		logger:   logger,
	}
	s.current.Store(key)
	return s, nil
}

// Key returns the key in use.
func (s *KeySet) Key() *VerificationKey {
	return s.current.Load()
}

// Keyfunc implements jwt.Keyfunc. Algorithm checks are left to the parser.
func (s *KeySet) Keyfunc(_ *jwt.Token) (any, error) {
	key := s.Key()
	if key == nil {
		return nil, auth.ErrKeyFetch
	}
	return key.PublicKey(), nil
}

// Refresh replaces the key with a freshly resolved one. On failure the
// previous key stays in place and the error is returned.
func (s *KeySet) Refresh(ctx context.Context) error {
	key, err := s.resolve(ctx, s.domain)
	if err != nil {
		s.logger.Warn("signing key refresh failed, keeping last good key", "domain", s.domain, "error", err)
		return err
	}
	s.current.Store(key)
	s.logger.Debug("signing key refreshed", "domain", s.domain)
	return nil
}

// Start launches the background refresh task. It is a no op when the
// interval is not positive or the task is already running.
func (s *KeySet) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Refresh(ctx)
			}
		}
	}(s.stopped)
}

// Close stops the refresh task and waits for it to exit.
func (s *KeySet) Close() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel, s.stopped = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}
