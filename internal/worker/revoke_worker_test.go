package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockRevocationWriter struct {
	mu          sync.Mutex
	calls       []RevokeCall
	revokeDelay time.Duration
	shouldFail  bool
	callCount   atomic.Int32
}

type RevokeCall struct {
	SessionIDs []string
	Until      time.Time
}

func (m *MockRevocationWriter) Revoke(_ context.Context, sessionIDs []string, until time.Time) error {
	m.callCount.Add(1)

	if m.revokeDelay > 0 {
		time.Sleep(m.revokeDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, RevokeCall{
		SessionIDs: append([]string(nil), sessionIDs...),
		Until:      until,
	})

	if m.shouldFail {
		return assert.AnError
	}

	return nil
}

func (m *MockRevocationWriter) GetCalls() []RevokeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RevokeCall{}, m.calls...)
}

func (m *MockRevocationWriter) totalSessions() int {
	total := 0
	for _, call := range m.GetCalls() {
		total += len(call.SessionIDs)
	}
	return total
}

func TestNewRevokeWorkerPool(t *testing.T) {
	store := &MockRevocationWriter{}
	config := DefaultConfig()

	pool := NewRevokeWorkerPool(store, config)

	assert.NotNil(t, pool)
	assert.Equal(t, config.WorkerCount, pool.workerCount)
	assert.Equal(t, config.BatchSize, pool.batchSize)
	assert.Equal(t, config.BatchTimeout, pool.batchTimeout)
	assert.Equal(t, config.BufferSize, cap(pool.requestChan))
}

func TestRevokeWorkerPool_SingleRequest(t *testing.T) {
	store := &MockRevocationWriter{}
	pool := NewRevokeWorkerPool(store, Config{
		WorkerCount:  2,
		BufferSize:   10,
		BatchSize:    5,
		BatchTimeout: 50 * time.Millisecond,
	})
	pool.Start()
	defer pool.Shutdown(time.Second)

	until := time.Now().Add(time.Hour)
	require.NoError(t, pool.Submit("sid-1", until))

	assert.Eventually(t, func() bool { return len(store.GetCalls()) == 1 }, time.Second, 10*time.Millisecond)

	calls := store.GetCalls()
	assert.Equal(t, []string{"sid-1"}, calls[0].SessionIDs)
	assert.True(t, calls[0].Until.Equal(until))
}

func TestRevokeWorkerPool_BatchBySize(t *testing.T) {
	store := &MockRevocationWriter{}
	pool := NewRevokeWorkerPool(store, Config{
		WorkerCount:  1,
		BufferSize:   10,
		BatchSize:    3,
		BatchTimeout: time.Hour,
	})
	pool.Start()
	defer pool.Shutdown(time.Second)

	base := time.Now()
	require.NoError(t, pool.Submit("a", base.Add(time.Minute)))
	require.NoError(t, pool.Submit("b", base.Add(3*time.Minute)))
	require.NoError(t, pool.Submit("c", base.Add(2*time.Minute)))

	assert.Eventually(t, func() bool { return len(store.GetCalls()) == 1 }, time.Second, 10*time.Millisecond)

	call := store.GetCalls()[0]
	assert.ElementsMatch(t, []string{"a", "b", "c"}, call.SessionIDs)
	assert.True(t, call.Until.Equal(base.Add(3*time.Minute)), "batch uses the latest expiry")
}

func TestRevokeWorkerPool_ConcurrentSubmits(t *testing.T) {
	store := &MockRevocationWriter{}
	pool := NewRevokeWorkerPool(store, Config{
		WorkerCount:  4,
		BufferSize:   100,
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
	})
	pool.Start()

	const goroutines = 10
	const requestsPerGoroutine = 5

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < requestsPerGoroutine; j++ {
				assert.NoError(t, pool.Submit("sid", time.Now().Add(time.Hour)))
			}
		}(i)
	}

	wg.Wait()
	require.NoError(t, pool.Shutdown(2*time.Second))

	assert.Equal(t, goroutines*requestsPerGoroutine, store.totalSessions())
}

func TestRevokeWorkerPool_GracefulShutdownDrains(t *testing.T) {
	store := &MockRevocationWriter{revokeDelay: 20 * time.Millisecond}
	pool := NewRevokeWorkerPool(store, Config{
		WorkerCount:  2,
		BufferSize:   10,
		BatchSize:    100,
		BatchTimeout: time.Hour,
	})
	pool.Start()

	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit("sid", time.Now().Add(time.Hour)))
	}

	require.NoError(t, pool.Shutdown(2*time.Second))
	assert.Equal(t, 3, store.totalSessions())
}

func TestRevokeWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewRevokeWorkerPool(&MockRevocationWriter{}, DefaultConfig())
	pool.Start()
	require.NoError(t, pool.Shutdown(time.Second))

	assert.ErrorIs(t, pool.Submit("sid", time.Now()), ErrPoolClosed)
	assert.NoError(t, pool.Shutdown(time.Second), "second shutdown is a no-op")
}

func TestRevokeWorkerPool_Stats(t *testing.T) {
	pool := NewRevokeWorkerPool(&MockRevocationWriter{}, Config{
		WorkerCount:  3,
		BufferSize:   50,
		BatchSize:    10,
		BatchTimeout: time.Second,
	})
	pool.Start()
	defer pool.Shutdown(time.Second)

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit("sid", time.Now()))
	}

	stats := pool.Stats()
	assert.Equal(t, 3, stats.WorkerCount)
	assert.Equal(t, 50, stats.QueueCap)
	assert.LessOrEqual(t, stats.QueueSize, 5)
}

func TestRevokeWorkerPool_ErrorHandling(t *testing.T) {
	store := &MockRevocationWriter{shouldFail: true}
	pool := NewRevokeWorkerPool(store, Config{
		WorkerCount:  1,
		BufferSize:   10,
		BatchSize:    5,
		BatchTimeout: 50 * time.Millisecond,
	})
	pool.Start()
	defer pool.Shutdown(time.Second)

	require.NoError(t, pool.Submit("sid", time.Now()))

	assert.Eventually(t, func() bool { return store.callCount.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRevokeWorkerPool_RevokeSessionWaitsForWrite(t *testing.T) {
	store := &MockRevocationWriter{}
	pool := NewRevokeWorkerPool(store, Config{
		WorkerCount:  1,
		BufferSize:   10,
		BatchSize:    50,
		BatchTimeout: time.Hour,
	})
	pool.Start()
	defer pool.Shutdown(time.Second)

	require.NoError(t, pool.Submit("queued", time.Now().Add(time.Hour)))
	require.NoError(t, pool.RevokeSession(context.Background(), "sid-1", time.Now().Add(time.Hour)))

	require.Len(t, store.GetCalls(), 1, "written before RevokeSession returns, without waiting for the batch timer")
	assert.ElementsMatch(t, []string{"queued", "sid-1"}, store.GetCalls()[0].SessionIDs)
}

func TestRevokeWorkerPool_RevokeSessionErrors(t *testing.T) {
	t.Run("Store failure", func(t *testing.T) {
		pool := NewRevokeWorkerPool(&MockRevocationWriter{shouldFail: true}, DefaultConfig())
		pool.Start()
		defer pool.Shutdown(time.Second)

		assert.ErrorIs(t, pool.RevokeSession(context.Background(), "sid", time.Now()), assert.AnError)
	})

	t.Run("Context done", func(t *testing.T) {
		pool := NewRevokeWorkerPool(&MockRevocationWriter{revokeDelay: 200 * time.Millisecond}, DefaultConfig())
		pool.Start()
		defer pool.Shutdown(time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		assert.ErrorIs(t, pool.RevokeSession(ctx, "sid", time.Now()), context.DeadlineExceeded)
	})

	t.Run("Pool closed", func(t *testing.T) {
		pool := NewRevokeWorkerPool(&MockRevocationWriter{}, DefaultConfig())
		pool.Start()
		require.NoError(t, pool.Shutdown(time.Second))

		assert.ErrorIs(t, pool.RevokeSession(context.Background(), "sid", time.Now()), ErrPoolClosed)
	})
}

func TestRevokeWorkerPool_ConcurrentRevokeSessions(t *testing.T) {
	store := &MockRevocationWriter{}
	pool := NewRevokeWorkerPool(store, Config{
		WorkerCount:  2,
		BufferSize:   100,
		BatchSize:    10,
		BatchTimeout: time.Hour,
	})
	pool.Start()
	defer pool.Shutdown(time.Second)

	const sessions = 20

	var wg sync.WaitGroup
	wg.Add(sessions)
	for i := 0; i < sessions; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, pool.RevokeSession(context.Background(), "sid", time.Now().Add(time.Hour)))
		}()
	}
	wg.Wait()

	assert.Equal(t, sessions, store.totalSessions())
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 2, config.WorkerCount)
	assert.Equal(t, 100, config.BufferSize)
	assert.Equal(t, 50, config.BatchSize)
	assert.Equal(t, time.Second, config.BatchTimeout)
	assert.Equal(t, 5*time.Second, config.WriteTimeout)
}
