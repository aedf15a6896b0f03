package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/eroom/pkg/config"
	"github.com/codeready-toolchain/eroom/pkg/jobstore"
	"github.com/codeready-toolchain/eroom/pkg/orchestrator"
)

// Manager is the bounded-concurrency admission point and worker pool: one
// FIFO channel of admitted jobs, N_WORKERS permanent workers each looping
// take -> process, and the job-result store both sides read and write.
type Manager struct {
	cfg          config.QueueConfig
	orchestrator RoomOrchestrator
	store        *jobstore.Store

	jobs     chan job
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	active    atomic.Int64
	completed atomic.Int64
}

// New builds a Manager. It does not start worker goroutines; call Start.
func New(cfg config.QueueConfig, orch RoomOrchestrator, store *jobstore.Store) *Manager {
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 1 << 20 // effectively unbounded without an actual unbounded channel
	}
	return &Manager{
		cfg:          cfg,
		orchestrator: orch,
		store:        store,
		jobs:         make(chan job, capacity),
		stopCh:       make(chan struct{}),
	}
}

// Start spawns the worker pool. Safe to call once; a second call is a no-op.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true

	slog.Info("Starting queue worker pool", "worker_count", m.cfg.WorkerCount)
	for i := 0; i < m.cfg.WorkerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, i)
	}
}

// Submit allocates a tracking id, registers a QUEUED entry, and enqueues the
// job. It returns synchronously without waiting for processing to begin. If
// the queue has a configured capacity and is full, it returns ErrQueueFull
// and deletes the entry it registered, leaving no registration behind.
func (m *Manager) Submit(req orchestrator.Request) (string, error) {
	if req.UUID == "" {
		req.UUID = uuid.NewString()
	}
	ruid := generateRUID()

	j := job{uuid: req.UUID, ruid: ruid, req: req}

	m.store.Register(ruid)

	if m.cfg.QueueCapacity > 0 {
		select {
		case m.jobs <- j:
		default:
			m.store.Delete(ruid)
			return "", ErrQueueFull
		}
	} else {
		m.jobs <- j
	}

	return ruid, nil
}

// Status reports current queue and pool occupancy.
func (m *Manager) Status() Status {
	return Status{
		Queued:        len(m.jobs),
		Active:        int(m.active.Load()),
		Completed:     int(m.completed.Load()),
		MaxConcurrent: m.cfg.WorkerCount,
	}
}

// Shutdown signals the workers to stop and waits up to cfg.GracePeriod for
// them to exit. A worker finishes the job it is processing before it exits;
// jobs still waiting in the channel may be left unprocessed in QUEUED.
// Shutdown does not cancel in-flight jobs: when the grace period expires it
// logs a warning and returns, and a remaining job runs on until the ctx
// passed to Start is done. Submit keeps accepting jobs after Shutdown.
func (m *Manager) Shutdown() {
	slog.Info("Queue shutdown requested", "grace_period", m.cfg.GracePeriod)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	m.stopOnce.Do(func() { close(m.stopCh) })

	select {
	case <-done:
		slog.Info("Queue workers drained gracefully")
	case <-time.After(m.cfg.GracePeriod):
		slog.Warn("Queue shutdown grace period expired, forcing worker exit")
	}
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	log := slog.With("worker_id", id)
	log.Info("Queue worker started")

	for {
		select {
		case <-m.stopCh:
			log.Info("Queue worker shutting down")
			return
		case <-ctx.Done():
			return
		case j := <-m.jobs:
			m.process(ctx, log, j)
		}
	}
}

func (m *Manager) process(ctx context.Context, log *slog.Logger, j job) {
	m.active.Add(1)
	defer m.active.Add(-1)

	m.store.UpdateStatus(j.ruid, jobstore.StatusProcessing)

	bundle := m.runOrchestrator(ctx, log, j)

	result, status := bundleToResult(bundle)
	if err := m.store.StoreFinal(j.ruid, result, status); err != nil {
		log.Error("Failed to store final job result", "ruid", j.ruid, "error", err)
	}

	m.completed.Add(1)
	log.Info("Job processing complete", "ruid", j.ruid, "status", status)
}

// runOrchestrator guards the orchestrator call with its own recover so that
// a panic escaping CreateRoom's own defer (or a nil Orchestrator return)
// never takes a worker goroutine down with it.
func (m *Manager) runOrchestrator(ctx context.Context, log *slog.Logger, j job) (bundle *orchestrator.Bundle) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic escaped orchestrator invocation", "ruid", j.ruid, "panic", r)
			bundle = nil
		}
	}()
	bundle = m.orchestrator.CreateRoom(ctx, j.req, j.ruid)
	return bundle
}

func bundleToResult(bundle *orchestrator.Bundle) (map[string]any, jobstore.Status) {
	if bundle == nil {
		return map[string]any{"success": false, "error": "internal error: orchestrator returned no result"}, jobstore.StatusFailed
	}

	raw, err := json.Marshal(bundle)
	if err != nil {
		return map[string]any{"success": false, "error": "internal error: failed to encode result"}, jobstore.StatusFailed
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return map[string]any{"success": false, "error": "internal error: failed to decode result"}, jobstore.StatusFailed
	}

	if bundle.Success {
		return result, jobstore.StatusCompleted
	}
	return result, jobstore.StatusFailed
}
