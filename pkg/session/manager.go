package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/internal/runtime"
	"github.com/aretw0/callflow/pkg/adapters/memory"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

const (
	DefaultTTL          = 30 * time.Minute
	DefaultReapInterval = time.Minute
	DefaultLockTTL      = 30 * time.Second
)

// Factory builds the dispatcher for a new session. convo receives every injected message.
type Factory func(sessionID string, convo ports.ConversationContext) (*runtime.Dispatcher, error)

// Conversation is one live session.
type Conversation struct {
	ID         string
	Dispatcher *runtime.Dispatcher
	Transcript *memory.Transcript

	mu       sync.Mutex
	lastSeen time.Time
}

func (c *Conversation) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

// LastSeen is the time of the most recent access.
func (c *Conversation) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	factory Factory
	store   ports.StateStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks

	convMu sync.RWMutex
	convs  map[string]*Conversation

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore persists a snapshot of every session after each change.
func WithStore(store ports.StateStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithTTL sets how long an idle session survives before it is reaped.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager that builds dispatchers with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		locks:   make(map[string]*lockEntry),
		convs:   make(map[string]*Conversation),
		lockTTL: DefaultLockTTL,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's context may already be done; the lock must still go.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"error", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Start opens a new session, initializes its dispatcher and returns the initial messages.
func (m *Manager) Start(ctx context.Context) (*Conversation, []domain.Message, error) {
	id := xid.New().String()
	transcript := memory.NewTranscript()

	d, err := m.factory(id, transcript)
	if err != nil {
		return nil, nil, fmt.Errorf("build dispatcher: %w", err)
	}
	conv := &Conversation{ID: id, Dispatcher: d, Transcript: transcript, lastSeen: m.now()}

	var msgs []domain.Message
	err = m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		if msgs, err = d.Initialize(ctx); err != nil {
			return err
		}
		if err := m.persist(ctx, conv); err != nil {
			return err
		}
		m.convMu.Lock()
		m.convs[id] = conv
		m.convMu.Unlock()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.logger.Info("session started", "session_id", id, "node", d.CurrentNode())
	return conv, msgs, nil
}

// Get returns a live session.
func (m *Manager) Get(sessionID string) (*Conversation, error) {
	m.convMu.RLock()
	defer m.convMu.RUnlock()
	conv, ok := m.convs[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return conv, nil
}

// Invoke runs one action on the session and persists the resulting snapshot.
// Once the dispatcher has committed the step a failed save no longer fails the call:
// it is logged and the outcome comes back marked Unsaved.
func (m *Manager) Invoke(ctx context.Context, sessionID, action string, params map[string]any) (*ports.Outcome, error) {
	conv, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var out *ports.Outcome
	err = m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		conv.touch(m.now())
		before := conv.Dispatcher.State()
		var err error
		out, err = conv.Dispatcher.Invoke(ctx, action, params)
		if err != nil {
			return err
		}
		out.Diff = domain.Diff(before, conv.Dispatcher.State())
		if err := m.persist(ctx, conv); err != nil {
			m.logger.Error("snapshot not saved", "session_id", sessionID, "node", out.To, "error", err)
			out.Unsaved = true
		}
		return nil
	})
	return out, err
}

// State returns the snapshot of a session, falling back to the store for sessions no longer live.
func (m *Manager) State(ctx context.Context, sessionID string) (*domain.FlowState, error) {
	if conv, err := m.Get(sessionID); err == nil {
		return conv.Dispatcher.State(), nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}
	return m.store.Load(ctx, sessionID)
}

// Delete drops a session from memory and from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.convMu.Lock()
		_, live := m.convs[sessionID]
		delete(m.convs, sessionID)
		m.convMu.Unlock()

		if m.store == nil {
			if !live {
				return domain.ErrSessionNotFound
			}
			return nil
		}
		err := m.store.Delete(ctx, sessionID)
		if err != nil && !(live && errors.Is(err, domain.ErrSessionNotFound)) {
			return err
		}
		return nil
	})
}

// List returns the IDs of the live sessions, sorted.
func (m *Manager) List() []string {
	m.convMu.RLock()
	defer m.convMu.RUnlock()
	ids := make([]string, 0, len(m.convs))
	for id := range m.convs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reap drops live sessions idle for longer than the TTL and returns their IDs.
// Snapshots stay in the store.
func (m *Manager) Reap() []string {
	cutoff := m.now().Add(-m.ttl)

	m.convMu.Lock()
	var reaped []string
	for id, conv := range m.convs {
		if conv.LastSeen().Before(cutoff) {
			delete(m.convs, id)
			reaped = append(reaped, id)
		}
	}
	m.convMu.Unlock()

	sort.Strings(reaped)
	for _, id := range reaped {
		m.logger.Info("session reaped", "session_id", id)
	}
	return reaped
}

// Run reaps on every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Reap()
		}
	}
}

// Store returns the underlying state store, if any.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

func (m *Manager) persist(ctx context.Context, conv *Conversation) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, conv.ID, conv.Dispatcher.State()); err != nil {
		return fmt.Errorf("persist session %s: %w", conv.ID, err)
	}
	return nil
}
