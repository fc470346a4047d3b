package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/dorm-print/internal/domain/entity"
)

func newSession(requester string) *entity.Session {
	return entity.NewSession(requester, "ou_prov", "nonce-"+requester, time.Now())
}

func TestMemoryStore_GetAbsent(t *testing.T) {
	store := NewMemoryStore()

	s, ok := store.Get(context.Background(), "ou_nobody")

	assert.False(t, ok)
	assert.Nil(t, s)
}

func TestMemoryStore_UpdateCreatesAndReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	saved, err := store.Update(ctx, "ou_a", func(cur *entity.Session) (*entity.Session, error) {
		assert.Nil(t, cur)
		return newSession("ou_a"), nil
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	saved.Requirements = "mutated outside"

	got, ok := store.Get(ctx, "ou_a")
	require.True(t, ok)
	assert.Empty(t, got.Requirements, "caller mutation must not leak into the store")
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMemoryStore_UpdateErrorDiscardsChanges(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.Update(ctx, "ou_a", func(*entity.Session) (*entity.Session, error) {
		s := newSession("ou_a")
		s.Requirements = "original"
		return s, nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Update(ctx, "ou_a", func(cur *entity.Session) (*entity.Session, error) {
		cur.Requirements = "half-done"
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, ok := store.Get(ctx, "ou_a")
	require.True(t, ok)
	assert.Equal(t, "original", got.Requirements)
}

func TestMemoryStore_UpdateNilClears(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Update(ctx, "ou_a", func(*entity.Session) (*entity.Session, error) {
		return newSession("ou_a"), nil
	})

	_, err := store.Update(ctx, "ou_a", func(*entity.Session) (*entity.Session, error) { return nil, nil })
	require.NoError(t, err)

	_, ok := store.Get(ctx, "ou_a")
	assert.False(t, ok)
	assert.Empty(t, store.slots, "empty slots should be dropped")
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Update(ctx, "ou_a", func(*entity.Session) (*entity.Session, error) {
		return newSession("ou_a"), nil
	})

	store.Clear(ctx, "ou_a")
	store.Clear(ctx, "ou_never_seen")

	_, ok := store.Get(ctx, "ou_a")
	assert.False(t, ok)
}

func TestMemoryStore_SameRequesterSerializes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Update(ctx, "ou_a", func(*entity.Session) (*entity.Session, error) {
		return newSession("ou_a"), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "ou_a", func(cur *entity.Session) (*entity.Session, error) {
				cur.Rating++
				return cur, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := store.Get(ctx, "ou_a")
	assert.Equal(t, 100, got.Rating, "lost updates indicate interleaved mutations")
}

func TestMemoryStore_DifferentRequestersIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_, _ = store.Update(ctx, "ou_slow", func(*entity.Session) (*entity.Session, error) {
			close(entered)
			<-release
			return newSession("ou_slow"), nil
		})
		close(done)
	}()
	<-entered

	finished := make(chan struct{})
	go func() {
		_, _ = store.Update(ctx, "ou_fast", func(*entity.Session) (*entity.Session, error) {
			return newSession("ou_fast"), nil
		})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("update for another requester blocked")
	}

	close(release)
	<-done
}

func TestMemoryStore_Snapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"ou_c", "ou_a", "ou_b"} {
		id := id
		_, _ = store.Update(ctx, id, func(*entity.Session) (*entity.Session, error) {
			return newSession(id), nil
		})
	}

	all := store.Snapshot(ctx)

	require.Len(t, all, 3)
	for i, id := range []string{"ou_a", "ou_b", "ou_c"} {
		assert.Equal(t, id, all[i].RequesterID)
	}
}

func TestSelectionRegistry(t *testing.T) {
	r := NewSelectionRegistry()

	_, ok := r.Selected("ou_a")
	assert.False(t, ok)

	r.Select("ou_a", "ou_p1")
	r.Select("ou_a", "ou_p2")
	got, ok := r.Selected("ou_a")
	assert.True(t, ok)
	assert.Equal(t, "ou_p2", got, "last write wins")

	r.Forget("ou_a")
	_, ok = r.Selected("ou_a")
	assert.False(t, ok)
}

func TestSelectionRegistry_Concurrent(t *testing.T) {
	r := NewSelectionRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("ou_%d", i)
			r.Select(id, "ou_p")
			_, _ = r.Selected(id)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		_, ok := r.Selected(fmt.Sprintf("ou_%d", i))
		assert.True(t, ok)
	}
}
