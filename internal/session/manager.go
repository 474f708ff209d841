package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/metrics"
	"github.com/versant-prep/backend/internal/models"
	"github.com/versant-prep/backend/internal/questionbank"
	"github.com/versant-prep/backend/internal/timer"
	"go.uber.org/zap"
)

// Completer receives each finalized session exactly once.
type Completer interface {
	Complete(ctx context.Context, userID int64, final *models.FinalizedSession) (*models.ResultRecord, error)
}

type entry struct {
	session *Session
	userID  int64
	cancel  context.CancelFunc

	once     sync.Once
	done     chan struct{}
	result   *models.ResultRecord
	err      error
	lastSeen time.Time
}

// Manager owns live sessions. Each session gets one goroutine feeding it
// ticks until the session is finalized, abandoned or evicted.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	pools     *questionbank.Pools
	completer Completer
	ticks     timer.Source
	now       func() time.Time
}

type Option func(*Manager)

func WithTickSource(src timer.Source) Option {
	return func(m *Manager) { m.ticks = src }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(pools *questionbank.Pools, completer Completer, opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*entry),
		pools:     pools,
		completer: completer,
		ticks:     timer.SecondTicker,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a full test. testID is the public 1-based test number.
func (m *Manager) Start(ctx context.Context, userID int64, testID int) (models.SessionSnapshot, error) {
	idx, err := questionbank.TestIndexFromID(testID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	questions, err := questionbank.LoadQuestions(idx, m.pools)
	if err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("load questions: %w", err)
	}

	s := New(uuid.NewString(), strconv.Itoa(testID), models.ModeFullTest, questions, FullTestTimings(), m.now)
	m.track(userID, s)
	return s.Snapshot(), nil
}

// StartPractice begins a single-section practice session over one page of
// that section's pool.
func (m *Manager) StartPractice(ctx context.Context, userID int64, kind models.SectionKind, count, page int) (models.SessionSnapshot, error) {
	questions, err := questionbank.LoadPracticeSet(kind, m.pools, count, page)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	testID := fmt.Sprintf("practice-%s-%d", kind, page)
	s := New(uuid.NewString(), testID, models.ModePractice, questions, PracticeTimings(), m.now)
	m.track(userID, s)
	return s.Snapshot(), nil
}

func (m *Manager) track(userID int64, s *Session) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		session:  s,
		userID:   userID,
		cancel:   cancel,
		done:     make(chan struct{}),
		lastSeen: m.now(),
	}

	m.mu.Lock()
	m.sessions[s.ID()] = e
	m.mu.Unlock()

	metrics.SessionsStarted.WithLabelValues(string(s.Mode())).Inc()
	logger.Log.Info("session: started",
		zap.String("session_id", s.ID()),
		zap.Int64("user_id", userID),
		zap.String("mode", string(s.Mode())))

	ticks, stop := m.ticks()
	go func() {
		defer stop()
		timer.Drive(ctx, ticks, func() {
			s.Tick()
			m.afterEvent(e)
		})
	}()

	m.afterEvent(e)
}

func (m *Manager) lookup(id string, userID int64) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.userID != userID {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = m.now()
	return e, nil
}

func (m *Manager) Get(ctx context.Context, id string, userID int64) (models.SessionSnapshot, error) {
	e, err := m.lookup(id, userID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	return e.session.Snapshot(), nil
}

func (m *Manager) StartSection(ctx context.Context, id string, userID int64) (models.SessionSnapshot, error) {
	return m.apply(id, userID, (*Session).StartSection)
}

func (m *Manager) SetAnswer(ctx context.Context, id string, userID int64, value string) (models.SessionSnapshot, error) {
	return m.apply(id, userID, func(s *Session) error { return s.SetAnswer(value) })
}

func (m *Manager) Submit(ctx context.Context, id string, userID int64) (models.SessionSnapshot, error) {
	return m.apply(id, userID, (*Session).Submit)
}

func (m *Manager) apply(id string, userID int64, fn func(*Session) error) (models.SessionSnapshot, error) {
	e, err := m.lookup(id, userID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	if err := fn(e.session); err != nil {
		return e.session.Snapshot(), err
	}
	m.afterEvent(e)
	return e.session.Snapshot(), nil
}

// Abandon ends a session without a result. Nothing is scored or stored.
func (m *Manager) Abandon(ctx context.Context, id string, userID int64) error {
	e, err := m.lookup(id, userID)
	if err != nil {
		return err
	}
	if err := e.session.Abandon(); err != nil {
		return err
	}
	e.cancel()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	metrics.SessionsAbandoned.Inc()
	logger.Log.Info("session: abandoned", zap.String("session_id", id), zap.Int64("user_id", userID))
	return nil
}

// Result waits for a finalized session's completion to finish and returns
// its record.
func (m *Manager) Result(ctx context.Context, id string, userID int64) (*models.ResultRecord, error) {
	e, err := m.lookup(id, userID)
	if err != nil {
		return nil, err
	}
	if e.session.Status() != models.StatusFinalized {
		return nil, ErrNotFinalized
	}
	select {
	case <-e.done:
		return e.result, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) afterEvent(e *entry) {
	if e.session.Status() != models.StatusFinalized {
		return
	}
	e.once.Do(func() {
		defer close(e.done)
		e.cancel()

		mode := string(e.session.Mode())
		metrics.SessionsFinalized.WithLabelValues(mode).Inc()

		final, err := e.session.Final()
		if err != nil {
			e.err = err
			return
		}
		e.result, e.err = m.completer.Complete(context.Background(), e.userID, final)
		if e.err != nil {
			logger.Log.Error("session: completion failed",
				zap.String("session_id", e.session.ID()),
				zap.Error(e.err))
			return
		}
		logger.Log.Info("session: finalized",
			zap.String("session_id", e.session.ID()),
			zap.String("mode", mode),
			zap.Int("total_score", e.result.TotalScore))
	})
}

// Sweep abandons in-progress sessions idle longer than idle and forgets
// finished sessions not looked at for longer than retain.
func (m *Manager) Sweep(idle, retain time.Duration) {
	now := m.now()

	m.mu.Lock()
	var stale []*entry
	for id, e := range m.sessions {
		age := now.Sub(e.lastSeen)
		switch e.session.Status() {
		case models.StatusInProgress:
			if age > idle {
				stale = append(stale, e)
			}
		default:
			if age > retain {
				delete(m.sessions, id)
			}
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		m.evictIdle(e)
	}
}

// evictIdle abandons and forgets an idle session. A session that finalized
// after the idle scan stays tracked so its result can still be fetched.
func (m *Manager) evictIdle(e *entry) bool {
	if err := e.session.Abandon(); err != nil {
		return false
	}
	e.cancel()

	m.mu.Lock()
	delete(m.sessions, e.session.ID())
	m.mu.Unlock()

	metrics.SessionsAbandoned.Inc()
	logger.Log.Info("session: evicted idle session", zap.String("session_id", e.session.ID()))
	return true
}

// RunJanitor calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunJanitor(ctx context.Context, interval, idle, retain time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	timer.Drive(ctx, ticker.C, func() { m.Sweep(idle, retain) })
}

// Shutdown stops every session's tick goroutine.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sessions {
		e.cancel()
	}
}
