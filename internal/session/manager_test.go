package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versant-prep/backend/internal/models"
	"github.com/versant-prep/backend/internal/questionbank"
	"github.com/versant-prep/backend/internal/timer"
)

type fakeCompleter struct {
	mu    sync.Mutex
	calls []*models.FinalizedSession
}

func (f *fakeCompleter) Complete(ctx context.Context, userID int64, final *models.FinalizedSession) (*models.ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, final)
	return &models.ResultRecord{ID: int64(len(f.calls)), UserID: userID, TestID: final.TestID}, nil
}

func (f *fakeCompleter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func manualTicks() (chan time.Time, timer.Source) {
	ch := make(chan time.Time)
	return ch, func() (<-chan time.Time, func()) { return ch, func() {} }
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeCompleter) {
	t.Helper()
	pools, err := questionbank.LoadPools("")
	require.NoError(t, err)
	completer := &fakeCompleter{}
	m := NewManager(pools, completer, opts...)
	t.Cleanup(m.Shutdown)
	return m, completer
}

func TestManager_StartFullTest(t *testing.T) {
	_, src := manualTicks()
	m, _ := newTestManager(t, WithTickSource(src))

	snap, err := m.Start(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "3", snap.TestID)
	assert.Equal(t, models.ModeFullTest, snap.Mode)
	assert.Equal(t, 6, snap.SectionCount)
	assert.Equal(t, models.PhaseInstructions, snap.State)
}

func TestManager_StartInvalidTest(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Start(context.Background(), 1, 0)
	assert.ErrorIs(t, err, questionbank.ErrInvalidTestID)
	_, err = m.Start(context.Background(), 1, 21)
	assert.ErrorIs(t, err, questionbank.ErrInvalidTestID)
}

func TestManager_SubmitToCompletion(t *testing.T) {
	_, src := manualTicks()
	m, completer := newTestManager(t, WithTickSource(src))
	ctx := context.Background()

	snap, err := m.StartPractice(ctx, 7, models.SectionEmailWriting, 1, 0)
	require.NoError(t, err)
	id := snap.ID

	_, err = m.Result(ctx, id, 7)
	assert.ErrorIs(t, err, ErrNotFinalized)

	_, err = m.StartSection(ctx, id, 7)
	require.NoError(t, err)
	_, err = m.SetAnswer(ctx, id, 7, "Dear team, please confirm the meeting. Thanks")
	require.NoError(t, err)
	snap, err = m.Submit(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, snap.Status)

	rec, err := m.Result(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.UserID)
	assert.Equal(t, 1, completer.count())

	// further events never complete twice
	_, err = m.Submit(ctx, id, 7)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, 1, completer.count())
}

func TestManager_TimerDrivesCompletion(t *testing.T) {
	ch, src := manualTicks()
	m, completer := newTestManager(t, WithTickSource(src))
	ctx := context.Background()

	snap, err := m.StartPractice(ctx, 7, models.SectionSentenceCompletion, 1, 0)
	require.NoError(t, err)
	_, err = m.StartSection(ctx, snap.ID, 7)
	require.NoError(t, err)

	for i := 0; i < PracticeTimings()[models.SectionSentenceCompletion].ItemSeconds; i++ {
		ch <- time.Now()
	}

	require.Eventually(t, func() bool { return completer.count() == 1 }, time.Second, 5*time.Millisecond)
	rec, err := m.Result(ctx, snap.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, "practice-sentence_completion-0", rec.TestID)
}

func TestManager_AbandonNeverCompletes(t *testing.T) {
	_, src := manualTicks()
	m, completer := newTestManager(t, WithTickSource(src))
	ctx := context.Background()

	snap, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)
	require.NoError(t, m.Abandon(ctx, snap.ID, 1))

	_, err = m.Get(ctx, snap.ID, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, completer.count())
}

func TestManager_SessionsAreScopedToUser(t *testing.T) {
	_, src := manualTicks()
	m, _ := newTestManager(t, WithTickSource(src))
	ctx := context.Background()

	snap, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)

	_, err = m.Get(ctx, snap.ID, 2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Abandon(ctx, snap.ID, 2), ErrSessionNotFound)
}

func TestManager_EvictIdleKeepsSessionFinalizedAfterScan(t *testing.T) {
	_, src := manualTicks()
	m, completer := newTestManager(t, WithTickSource(src))
	ctx := context.Background()

	snap, err := m.StartPractice(ctx, 3, models.SectionEmailWriting, 1, 0)
	require.NoError(t, err)
	e, err := m.lookup(snap.ID, 3)
	require.NoError(t, err)

	// The session finishes between the idle scan and the eviction.
	_, err = m.StartSection(ctx, snap.ID, 3)
	require.NoError(t, err)
	_, err = m.SetAnswer(ctx, snap.ID, 3, "Dear team, please confirm the schedule. Thanks")
	require.NoError(t, err)
	_, err = m.Submit(ctx, snap.ID, 3)
	require.NoError(t, err)

	assert.False(t, m.evictIdle(e))

	rec, err := m.Result(ctx, snap.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.UserID)
	assert.Equal(t, 1, completer.count())
}

func TestManager_SweepEvictsIdleSessions(t *testing.T) {
	now := fixedNow
	_, src := manualTicks()
	m, completer := newTestManager(t, WithTickSource(src), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	snap, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	m.Sweep(time.Hour, time.Hour)
	_, err = m.Get(ctx, snap.ID, 1)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	m.Sweep(time.Hour, time.Hour)
	_, err = m.Get(ctx, snap.ID, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, completer.count())
}
