package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
)

type fakeFolders struct {
	mu        sync.Mutex
	folders   []port.FolderInfo
	deleted   []string
	listErr   error
	deleteErr map[string]error
}

func (f *fakeFolders) List(ctx context.Context) ([]port.FolderInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.folders, f.listErr
}

func (f *fakeFolders) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[name]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeFolders) SanitizeName(name string) string { return name }

type fakeExpirer struct {
	mu      sync.Mutex
	cutoffs []time.Time
	expired []string
}

func (f *fakeExpirer) ExpireIdle(ctx context.Context, cutoff time.Time) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.expired
}

func (f *fakeExpirer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestJanitor_Sweep(t *testing.T) {
	now := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	folders := &fakeFolders{
		folders: []port.FolderInfo{
			{Name: "ou_old", ModTime: now.Add(-100 * time.Hour)},
			{Name: "ou_stuck", ModTime: now.Add(-80 * time.Hour)},
			{Name: "ou_fresh", ModTime: now.Add(-time.Hour)},
		},
		deleteErr: map[string]error{"ou_stuck": errors.New("busy")},
	}
	sessions := &fakeExpirer{expired: []string{"ou_a", "ou_b"}}

	j := NewJanitorWorker(JanitorConfig{
		SweepInterval:  time.Minute,
		CacheRetention: 72 * time.Hour,
		SessionIdleTTL: 24 * time.Hour,
	}, folders, sessions, zap.NewNop())
	j.now = func() time.Time { return now }

	result := j.Sweep(context.Background())

	assert.Equal(t, SweepResult{FoldersDeleted: 1, SessionsExpired: 2}, result)
	assert.Equal(t, []string{"ou_old"}, folders.deleted)
	require.Len(t, sessions.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), sessions.cutoffs[0])
}

func TestJanitor_ZeroDurationsDisable(t *testing.T) {
	folders := &fakeFolders{folders: []port.FolderInfo{{Name: "ou_old", ModTime: time.Unix(0, 0)}}}
	sessions := &fakeExpirer{}

	j := NewJanitorWorker(JanitorConfig{}, folders, sessions, zap.NewNop())
	result := j.Sweep(context.Background())

	assert.Zero(t, result)
	assert.Empty(t, folders.deleted)
	assert.Zero(t, sessions.calls())
}

func TestJanitor_ListError(t *testing.T) {
	folders := &fakeFolders{listErr: errors.New("permission denied")}
	j := NewJanitorWorker(JanitorConfig{CacheRetention: time.Hour}, folders, nil, zap.NewNop())

	assert.Zero(t, j.Sweep(context.Background()).FoldersDeleted)
}

func TestJanitor_StartStop(t *testing.T) {
	sessions := &fakeExpirer{}
	j := NewJanitorWorker(JanitorConfig{
		SweepInterval:  5 * time.Millisecond,
		SessionIdleTTL: time.Hour,
	}, &fakeFolders{}, sessions, zap.NewNop())

	require.NoError(t, j.Start(context.Background()))
	assert.Error(t, j.Start(context.Background()))

	assert.Eventually(t, func() bool { return sessions.calls() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, j.Stop())
	calls := sessions.calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, sessions.calls(), "no sweeps after stop")
	require.NoError(t, j.Stop())
}

type stubWorker struct {
	name    string
	stopErr error
	order   *[]string
}

func (w *stubWorker) Start(ctx context.Context) error { return nil }
func (w *stubWorker) Name() string                    { return w.name }
func (w *stubWorker) Stop() error {
	*w.order = append(*w.order, w.name)
	return w.stopErr
}

func TestWorkerManager_Lifecycle(t *testing.T) {
	var stopped []string
	m := NewWorkerManager(zap.NewNop())
	m.Register(&stubWorker{name: "first", order: &stopped})
	m.Register(&stubWorker{name: "second", order: &stopped, stopErr: errors.New("stuck")})
	assert.Equal(t, 2, m.GetWorkerCount())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))

	err := m.StopAll()
	assert.Error(t, err)
	assert.Equal(t, []string{"second", "first"}, stopped)
	assert.False(t, m.IsRunning())
	assert.NoError(t, m.StopAll())
}

type failingWorker struct{ stubWorker }

func (w *failingWorker) Start(ctx context.Context) error { return errors.New("no disk") }

func TestWorkerManager_StartFailureStopsStarted(t *testing.T) {
	var stopped []string
	m := NewWorkerManager(zap.NewNop())
	m.Register(&stubWorker{name: "janitor", order: &stopped})
	m.Register(&failingWorker{stubWorker{name: "broken", order: &stopped}})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"janitor"}, stopped)
	assert.False(t, m.IsRunning())
}

func TestWorkerManager_DuplicateNameIgnored(t *testing.T) {
	var stopped []string
	m := NewWorkerManager(zap.NewNop())
	m.Register(&stubWorker{name: "janitor", order: &stopped})
	m.Register(&stubWorker{name: "janitor", order: &stopped})

	assert.Equal(t, 1, m.GetWorkerCount())
	assert.Equal(t, []string{"janitor"}, m.Names())
}
