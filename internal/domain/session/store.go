package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/shared/id"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// closeTimeout bounds browser teardown
	closeTimeout = 10 * time.Second
	// launchTimeout bounds a session launch shared by concurrent callers
	launchTimeout = 60 * time.Second
)

// Session is a browser handle kept alive across requests
type Session struct {
	ID        string
	Browser   browser.Browser
	Page      browser.Page
	CreatedAt time.Time
}

// Lifetime returns how long the session has existed
func (s *Session) Lifetime(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Store is the exclusive owner of all sessions
type Store struct {
	driver  browser.Driver
	logger  *logging.Logger
	metrics *monitoring.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	launches singleflight.Group
}

// NewStore creates an empty store launching browsers through driver
func NewStore(driver browser.Driver, logger *logging.Logger) *Store {
	return &Store{
		driver:   driver,
		logger:   logger.Named("session"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// WithMetrics enables session metrics
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Create returns the session named id, launching a browser bound to proxy
// when it does not exist yet. An empty id gets a generated one. fresh is
// true only for the caller whose call performed the launch.
func (s *Store) Create(ctx context.Context, sessionID string, proxy *browser.Proxy) (sess *Session, fresh bool, err error) {
	if sessionID == "" {
		sessionID = id.NewSessionID().String()
	}
	if sess, ok := s.lookup(sessionID); ok {
		return sess, false, nil
	}

	launched := false
	v, err, _ := s.launches.Do(sessionID, func() (any, error) {
		// a launch for this id may have finished since the lookup above
		if sess, ok := s.lookup(sessionID); ok {
			return sess, nil
		}
		launched = true

		// waiters share this launch, so it must outlive the caller that started it
		launchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), launchTimeout)
		defer cancel()

		sess, err := s.launch(launchCtx, sessionID, proxy)
		if err != nil {
			return nil, err
		}
		s.register(sess)
		return sess, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Session), launched, nil
}

// Get returns the session named id like Create does, replacing it with a
// new browser first when ttl is positive and the session is older than ttl.
func (s *Store) Get(ctx context.Context, sessionID string, ttl time.Duration, proxy *browser.Proxy) (*Session, bool, error) {
	sess, fresh, err := s.Create(ctx, sessionID, proxy)
	if err != nil || fresh || ttl <= 0 {
		return sess, fresh, err
	}

	if age := sess.Lifetime(s.now()); age > ttl {
		s.logger.Info("Session expired, recreating",
			zap.String("session", sess.ID),
			zap.Duration("age", age),
			zap.Duration("ttl", ttl),
		)
		if s.remove(sess.ID, sess) {
			s.teardown(sess)
		}
		return s.Create(ctx, sess.ID, proxy)
	}
	return sess, false, nil
}

// Destroy removes and tears down the session named id. It reports whether
// the session existed; teardown failures are logged, never returned.
func (s *Store) Destroy(sessionID string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	if s.remove(sessionID, sess) {
		s.teardown(sess)
	}
	return true
}

// Exists reports whether a session named id is live
func (s *Store) Exists(sessionID string) bool {
	_, ok := s.lookup(sessionID)
	return ok
}

// List returns the live session ids in creation order
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.order...)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// DestroyAll tears down every session. Used once at shutdown.
func (s *Store) DestroyAll() {
	ids := s.List()
	for _, sessionID := range ids {
		s.Destroy(sessionID)
	}
	if len(ids) > 0 {
		s.logger.Info("All sessions destroyed", zap.Int("count", len(ids)))
	}
}

func (s *Store) lookup(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

func (s *Store) register(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	count := len(s.sessions)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncSessionsCreated()
		s.metrics.SetSessionsActive(count)
	}
}

// remove unregisters id only while it still maps to expect, so two callers
// racing to drop the same session tear it down once.
func (s *Store) remove(sessionID string, expect *Session) bool {
	s.mu.Lock()
	if cur, ok := s.sessions[sessionID]; !ok || cur != expect {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, sessionID)
	for i, v := range s.order {
		if v == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncSessionsDestroyed()
		s.metrics.SetSessionsActive(count)
	}
	return true
}

func (s *Store) launch(ctx context.Context, sessionID string, proxy *browser.Proxy) (*Session, error) {
	s.logger.Info("Launching browser for session", zap.String("session", sessionID))

	b, page, err := Open(ctx, s.driver, proxy)
	if s.metrics != nil {
		s.metrics.RecordBrowserLaunch("session", err)
	}
	if err != nil {
		return nil, err
	}
	return &Session{ID: sessionID, Browser: b, Page: page, CreatedAt: s.now()}, nil
}

func (s *Store) teardown(sess *Session) {
	if err := Close(sess.Browser); err != nil {
		s.logger.Warn("Error closing session browser",
			zap.String("session", sess.ID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Session destroyed", zap.String("session", sess.ID))
}

// Open launches a browser and its page. On failure nothing is left running.
func Open(ctx context.Context, driver browser.Driver, proxy *browser.Proxy) (browser.Browser, browser.Page, error) {
	b, err := driver.Launch(ctx, proxy)
	if err != nil {
		return nil, nil, fmt.Errorf("launch %s browser: %w", driver.Name(), err)
	}
	page, err := b.NewPage(ctx)
	if err != nil {
		_ = Close(b)
		return nil, nil, fmt.Errorf("open page: %w", err)
	}
	return b, page, nil
}

// Close tears a browser down within a fixed budget, independent of any
// request context.
func Close(b browser.Browser) error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return b.Close(ctx)
}
