package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLockKey = "order_lock:modules:1"

type lockResult struct {
	release func()
	err     error
}

func TestScopeLockBlocksUntilRelease(t *testing.T) {
	r, mr := newTestCache(t)
	locker := r.NewScopeLocker(5 * time.Second)
	ctx := context.Background()

	release, err := locker.Lock(ctx, testLockKey)
	require.NoError(t, err)
	assert.True(t, mr.Exists(testLockKey))

	// other scopes are independent
	other, err := locker.Lock(ctx, "order_lock:modules:2")
	require.NoError(t, err)
	other()

	done := make(chan lockResult, 1)
	go func() {
		second, err := locker.Lock(ctx, testLockKey)
		done <- lockResult{second, err}
	}()

	select {
	case <-done:
		t.Fatal("second Lock returned while the first holder still held the key")
	case <-time.After(150 * time.Millisecond):
	}

	release()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		res.release()
	case <-time.After(2 * time.Second):
		t.Fatal("second Lock did not acquire after release")
	}
	assert.False(t, mr.Exists(testLockKey))
}

func TestStaleReleaseKeepsNewHolder(t *testing.T) {
	r, mr := newTestCache(t)
	locker := r.NewScopeLocker(time.Second)
	ctx := context.Background()

	stale, err := locker.Lock(ctx, testLockKey)
	require.NoError(t, err)

	// the first holder's key expires before it releases
	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists(testLockKey))

	current, err := locker.Lock(ctx, testLockKey)
	require.NoError(t, err)
	holder, err := mr.Get(testLockKey)
	require.NoError(t, err)

	stale()
	got, err := mr.Get(testLockKey)
	require.NoError(t, err)
	assert.Equal(t, holder, got)

	current()
	assert.False(t, mr.Exists(testLockKey))
}

func TestScopeLockTimesOut(t *testing.T) {
	r, _ := newTestCache(t)
	locker := &ScopeLocker{client: r.client, ttl: 5 * time.Second, retry: 10 * time.Millisecond, wait: 60 * time.Millisecond}
	ctx := context.Background()

	release, err := locker.Lock(ctx, testLockKey)
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = locker.Lock(ctx, testLockKey)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestScopeLockStopsOnContextCancel(t *testing.T) {
	r, _ := newTestCache(t)
	locker := r.NewScopeLocker(5 * time.Second)

	release, err := locker.Lock(context.Background(), testLockKey)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = locker.Lock(ctx, testLockKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestScopeLockExcludesConcurrentHolders(t *testing.T) {
	r, _ := newTestCache(t)
	locker := r.NewScopeLocker(5 * time.Second)

	var (
		mu      sync.Mutex
		holders int
		peak    int
		wg      sync.WaitGroup
	)
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), testLockKey)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			holders++
			if holders > peak {
				peak = holders
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, peak)
}
