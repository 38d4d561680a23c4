package console

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionCookie = "admingrid_session"

// session holds the live grids of one browser. Each browser pages, searches
// and edits independently of the others.
type session struct {
	id string

	mu       sync.Mutex
	grids    map[string]*liveGrid
	lastSeen time.Time
}

func (c *session) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *session) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// detachAll detaches and forgets every grid of the session.
func (c *session) detachAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.grids)
	for name, g := range c.grids {
		g.orch.Detach()
		delete(c.grids, name)
	}
	return n
}

func (c *session) gridCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.grids)
}

// sessionStore tracks browser sessions by cookie value.
type sessionStore struct {
	mu     sync.RWMutex
	byID   map[string]*session
	idle   time.Duration
	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

func newSessionStore(idle time.Duration) *sessionStore {
	return &sessionStore{
		byID:   make(map[string]*session),
		idle:   idle,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// getOrCreate returns the session with the given id. Unknown or empty ids
// get a fresh session under a new id, and the second result is true.
func (m *sessionStore) getOrCreate(id string) (*session, bool) {
	now := m.now()
	if id != "" {
		m.mu.RLock()
		sess, ok := m.byID[id]
		m.mu.RUnlock()
		if ok {
			sess.touch(now)
			return sess, false
		}
	}

	sess := &session{
		id:       uuid.NewString(),
		grids:    make(map[string]*liveGrid),
		lastSeen: now,
	}
	m.mu.Lock()
	m.byID[sess.id] = sess
	m.mu.Unlock()
	slog.Debug("session created", "session", sess.id)
	return sess, true
}

func (m *sessionStore) get(id string) (*session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.byID[id]
	return sess, ok
}

func (m *sessionStore) remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	return true
}

func (m *sessionStore) all() []*session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*session, 0, len(m.byID))
	for _, sess := range m.byID {
		out = append(out, sess)
	}
	return out
}

func (m *sessionStore) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// evictIdle removes sessions unused for longer than the idle timeout and
// detaches their grids. It returns the number of sessions evicted.
func (m *sessionStore) evictIdle(now time.Time) int {
	evicted := 0
	for _, sess := range m.all() {
		if sess.idleSince(now) <= m.idle {
			continue
		}
		if !m.remove(sess.id) {
			continue
		}
		grids := sess.detachAll()
		evicted++
		slog.Info("session evicted", "session", sess.id, "grids", grids)
	}
	return evicted
}

// startReaper periodically evicts idle sessions until stop is called.
func (m *sessionStore) startReaper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.evictIdle(m.now())
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *sessionStore) stop() {
	m.once.Do(func() { close(m.stopCh) })
}

// reaperInterval checks for idle sessions twice per timeout, at most once a
// second.
func reaperInterval(idle time.Duration) time.Duration {
	if iv := idle / 2; iv > time.Second {
		return iv
	}
	return time.Second
}

// session returns the caller's session, issuing a cookie when it is new.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.getOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.id,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.listenCfg.TLSEnabled(),
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}
