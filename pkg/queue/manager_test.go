package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/eroom/pkg/config"
	"github.com/codeready-toolchain/eroom/pkg/jobstore"
	"github.com/codeready-toolchain/eroom/pkg/orchestrator"
)

// fakeOrchestrator is a scriptable RoomOrchestrator test double.
type fakeOrchestrator struct {
	mu       sync.Mutex
	handle   func(req orchestrator.Request, ruid string) *orchestrator.Bundle
	started  []string
	finished []string
	release  chan struct{} // if non-nil, process blocks here until sent to
}

func (f *fakeOrchestrator) CreateRoom(ctx context.Context, req orchestrator.Request, ruid string) *orchestrator.Bundle {
	f.mu.Lock()
	f.started = append(f.started, ruid)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}

	bundle := f.handle(req, ruid)

	f.mu.Lock()
	f.finished = append(f.finished, ruid)
	f.mu.Unlock()
	return bundle
}

func testQueueConfig(workers, capacity int) config.QueueConfig {
	return config.QueueConfig{
		WorkerCount:   workers,
		QueueCapacity: capacity,
		GracePeriod:   time.Second,
	}
}

func waitForStatus(t *testing.T, store *jobstore.Store, ruid string, want jobstore.Status, timeout time.Duration) jobstore.JobState {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		state, ok := store.Get(ruid)
		if ok && state.Status == want {
			return state
		}
		if time.Now().After(deadline) {
			t.Fatalf("ruid %s did not reach status %s within %s (last seen: %+v)", ruid, want, timeout, state)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubmitReturnsRuidAndQueuesJob(t *testing.T) {
	store := jobstore.New()
	orch := &fakeOrchestrator{handle: func(orchestrator.Request, string) *orchestrator.Bundle {
		return &orchestrator.Bundle{Success: true}
	}}
	m := New(testQueueConfig(1, 0), orch, store)
	m.Start(context.Background())
	defer m.Shutdown()

	ruid, err := m.Submit(orchestrator.Request{Theme: "lab"})
	require.NoError(t, err)
	assert.Regexp(t, `^room_[0-9a-f]{16}$`, ruid)

	waitForStatus(t, store, ruid, jobstore.StatusCompleted, time.Second)
}

func TestSubmitRejectsWhenBoundedQueueIsFull(t *testing.T) {
	store := jobstore.New()
	release := make(chan struct{})
	orch := &fakeOrchestrator{
		release: release,
		handle:  func(orchestrator.Request, string) *orchestrator.Bundle { return &orchestrator.Bundle{Success: true} },
	}
	m := New(testQueueConfig(1, 1), orch, store)
	m.Start(context.Background())
	defer func() {
		close(release)
		m.Shutdown()
	}()

	// First submission is picked up immediately by the single worker and
	// blocks on release; second fills the capacity-1 buffer; third must be
	// rejected.
	_, err := m.Submit(orchestrator.Request{Theme: "a"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond) // let the worker claim the first job

	_, err = m.Submit(orchestrator.Request{Theme: "b"})
	require.NoError(t, err)

	_, err = m.Submit(orchestrator.Request{Theme: "c"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueFIFOSerializesProcessingWithSingleWorker(t *testing.T) {
	store := jobstore.New()
	orch := &fakeOrchestrator{handle: func(req orchestrator.Request, ruid string) *orchestrator.Bundle {
		time.Sleep(20 * time.Millisecond)
		return &orchestrator.Bundle{Success: true}
	}}
	m := New(testQueueConfig(1, 0), orch, store)
	m.Start(context.Background())
	defer m.Shutdown()

	ruidA, err := m.Submit(orchestrator.Request{Theme: "a"})
	require.NoError(t, err)
	ruidB, err := m.Submit(orchestrator.Request{Theme: "b"})
	require.NoError(t, err)

	waitForStatus(t, store, ruidA, jobstore.StatusCompleted, time.Second)
	waitForStatus(t, store, ruidB, jobstore.StatusCompleted, time.Second)

	// With exactly one worker, both jobs ran and were started in submission
	// order.
	orch.mu.Lock()
	started := append([]string{}, orch.started...)
	orch.mu.Unlock()
	require.Len(t, started, 2)
	assert.Equal(t, ruidA, started[0])
	assert.Equal(t, ruidB, started[1])
}

func TestProcessStoresFailedStatusOnUnsuccessfulBundle(t *testing.T) {
	store := jobstore.New()
	orch := &fakeOrchestrator{handle: func(orchestrator.Request, string) *orchestrator.Bundle {
		return &orchestrator.Bundle{Success: false, Error: "validation failed: theme must not be empty"}
	}}
	m := New(testQueueConfig(1, 0), orch, store)
	m.Start(context.Background())
	defer m.Shutdown()

	ruid, err := m.Submit(orchestrator.Request{})
	require.NoError(t, err)

	state := waitForStatus(t, store, ruid, jobstore.StatusFailed, time.Second)
	assert.Equal(t, false, state.Result["success"])
}

func TestProcessHandlesNilBundleFromPanic(t *testing.T) {
	store := jobstore.New()
	orch := &fakeOrchestrator{handle: func(orchestrator.Request, string) *orchestrator.Bundle {
		panic("boom")
	}}
	m := New(testQueueConfig(1, 0), orch, store)
	m.Start(context.Background())
	defer m.Shutdown()

	ruid, err := m.Submit(orchestrator.Request{})
	require.NoError(t, err)

	waitForStatus(t, store, ruid, jobstore.StatusFailed, time.Second)
}

func TestStatusReflectsCompletedCount(t *testing.T) {
	store := jobstore.New()
	orch := &fakeOrchestrator{handle: func(orchestrator.Request, string) *orchestrator.Bundle {
		return &orchestrator.Bundle{Success: true}
	}}
	m := New(testQueueConfig(2, 0), orch, store)
	m.Start(context.Background())
	defer m.Shutdown()

	ruid, err := m.Submit(orchestrator.Request{Theme: "a"})
	require.NoError(t, err)
	waitForStatus(t, store, ruid, jobstore.StatusCompleted, time.Second)

	status := m.Status()
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 2, status.MaxConcurrent)
}

func TestShutdownWaitsForInFlightJobThenReturns(t *testing.T) {
	store := jobstore.New()
	release := make(chan struct{})
	orch := &fakeOrchestrator{
		release: release,
		handle:  func(orchestrator.Request, string) *orchestrator.Bundle { return &orchestrator.Bundle{Success: true} },
	}
	cfg := testQueueConfig(1, 0)
	cfg.GracePeriod = 2 * time.Second
	m := New(cfg, orch, store)
	m.Start(context.Background())

	ruid, err := m.Submit(orchestrator.Request{Theme: "a"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond) // ensure the worker has claimed it

	shutdownDone := make(chan struct{})
	go func() {
		m.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned before the in-flight job was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-shutdownDone

	state, ok := store.Get(ruid)
	require.True(t, ok)
	assert.True(t, state.Status.IsTerminal())
}
