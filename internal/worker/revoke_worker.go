package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrPoolClosed = errors.New("revoke worker pool is shut down")

type RevokeRequest struct {
	SessionID string
	Until     time.Time

	// done receives the result of the flush that wrote this session, when set.
	done chan error
}

type RevocationWriter interface {
	Revoke(ctx context.Context, sessionIDs []string, until time.Time) error
}

// RevokeWorkerPool writes sign-out revocations in the background, batching
// them by size and time.
type RevokeWorkerPool struct {
	store        RevocationWriter
	requestChan  chan RevokeRequest
	batchSize    int
	batchTimeout time.Duration
	writeTimeout time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	closeMu      sync.RWMutex
	closed       bool
}

type Config struct {
	WorkerCount  int           // number of workers
	BufferSize   int           // request channel capacity
	BatchSize    int           // flush once this many sessions are pending
	BatchTimeout time.Duration // flush after this long with pending sessions
	WriteTimeout time.Duration // per-flush store deadline
}

func DefaultConfig() Config {
	return Config{
		WorkerCount:  2,
		BufferSize:   100,
		BatchSize:    50,
		BatchTimeout: time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func NewRevokeWorkerPool(store RevocationWriter, config Config) *RevokeWorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	return &RevokeWorkerPool{
		store:        store,
		requestChan:  make(chan RevokeRequest, config.BufferSize),
		batchSize:    config.BatchSize,
		batchTimeout: config.BatchTimeout,
		writeTimeout: config.WriteTimeout,
		workerCount:  config.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (p *RevokeWorkerPool) Start() {
	log.Info().
		Int("workers", p.workerCount).
		Int("batchSize", p.batchSize).
		Dur("batchTimeout", p.batchTimeout).
		Msg("Starting revoke worker pool")

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *RevokeWorkerPool) worker(id int) {
	defer p.wg.Done()

	log.Debug().Int("workerID", id).Msg("Worker started")

	var batch []string
	var waiters []chan error
	var until time.Time
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) == 0 {
			return
		}

		// the latest expiry covers every session in the batch
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		err := p.store.Revoke(ctx, batch, until)
		cancel()

		if err != nil {
			log.Error().
				Err(err).
				Int("workerID", id).
				Int("sessions", len(batch)).
				Msg("Failed to revoke sessions")
		} else {
			log.Debug().
				Int("workerID", id).
				Int("sessions", len(batch)).
				Msg("Revoked sessions")
		}

		for _, done := range waiters {
			done <- err
		}

		batch = nil
		waiters = nil
		until = time.Time{}
	}

	add := func(req RevokeRequest) {
		batch = append(batch, req.SessionID)
		if req.Until.After(until) {
			until = req.Until
		}
		if req.done != nil {
			waiters = append(waiters, req.done)
		}
	}

	// drain picks up requests already queued so that concurrent waiters share
	// one write.
	drain := func() {
		for len(batch) < p.batchSize {
			select {
			case req, ok := <-p.requestChan:
				if !ok {
					return
				}
				add(req)
			default:
				return
			}
		}
	}

	startTimer := func() {
		if timer == nil {
			timer = time.NewTimer(p.batchTimeout)
		} else {
			timer.Reset(p.batchTimeout)
		}
		timerC = timer.C
	}

	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timerC = nil
	}

	for {
		select {
		case <-p.ctx.Done():
			log.Debug().Int("workerID", id).Msg("Worker shutting down")
			flush()
			stopTimer()
			return

		case req, ok := <-p.requestChan:
			if !ok {
				log.Debug().Int("workerID", id).Msg("Request channel closed, flushing remaining batch")
				flush()
				stopTimer()
				return
			}

			batchWasEmpty := len(batch) == 0
			add(req)

			if req.done != nil {
				drain()
				stopTimer()
				flush()
			} else if len(batch) >= p.batchSize {
				stopTimer()
				flush()
			} else if batchWasEmpty {
				startTimer()
			}

		case <-timerC:
			timerC = nil
			flush()
		}
	}
}

// Submit queues a session for revocation. It blocks while the queue is full.
func (p *RevokeWorkerPool) Submit(sessionID string, until time.Time) error {
	return p.submit(RevokeRequest{SessionID: sessionID, Until: until})
}

// RevokeSession queues a session and waits until it is written. The pending batch is
// flushed at once rather than on the batch timer.
func (p *RevokeWorkerPool) RevokeSession(ctx context.Context, sessionID string, until time.Time) error {
	done := make(chan error, 1)
	if err := p.submit(RevokeRequest{SessionID: sessionID, Until: until, done: done}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RevokeWorkerPool) submit(req RevokeRequest) error {
	sessionID := req.SessionID

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-p.ctx.Done():
		return context.Canceled
	case p.requestChan <- req:
		log.Debug().Str("sessionID", sessionID).Msg("Revoke request submitted")
		return nil
	default:
		log.Warn().Str("sessionID", sessionID).Msg("Revoke queue is full, blocking")

		select {
		case <-p.ctx.Done():
			return context.Canceled
		case p.requestChan <- req:
			return nil
		}
	}
}

// Shutdown stops accepting work and drains pending batches, forcing the
// workers down after timeout.
func (p *RevokeWorkerPool) Shutdown(timeout time.Duration) error {
	var shutdownErr error

	p.shutdownOnce.Do(func() {
		log.Info().Msg("Shutting down revoke worker pool")

		p.closeMu.Lock()
		p.closed = true
		close(p.requestChan)
		p.closeMu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Info().Msg("Revoke worker pool shut down gracefully")
		case <-time.After(timeout):
			log.Warn().Msg("Revoke worker pool shutdown timeout, forcing shutdown")
			p.cancel()
			<-done
			shutdownErr = context.DeadlineExceeded
		}
		p.cancel()
	})

	return shutdownErr
}

func (p *RevokeWorkerPool) Stats() PoolStats {
	return PoolStats{
		QueueSize:   len(p.requestChan),
		QueueCap:    cap(p.requestChan),
		WorkerCount: p.workerCount,
	}
}

type PoolStats struct {
	QueueSize   int
	QueueCap    int
	WorkerCount int
}
