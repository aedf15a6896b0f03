// Package queue implements bounded-concurrency admission control and a FIFO
// worker pool over pkg/orchestrator, backed by pkg/jobstore for job state.
package queue

import (
	"context"
	"errors"

	"github.com/codeready-toolchain/eroom/pkg/orchestrator"
)

// ErrQueueFull is returned by Submit when the queue has a configured
// capacity and is at that capacity. Never returned by an unbounded queue
// (QueueCapacity == 0).
var ErrQueueFull = errors.New("queue is full")

// job is one admitted unit of work: the submitted request, not yet
// validated, paired with the identifiers assigned at admission time.
type job struct {
	uuid string
	ruid string
	req  orchestrator.Request
}

// RoomOrchestrator is the subset of *orchestrator.Orchestrator the queue
// depends on.
type RoomOrchestrator interface {
	CreateRoom(ctx context.Context, req orchestrator.Request, ruid string) *orchestrator.Bundle
}

// Status is a point-in-time snapshot of queue and worker-pool occupancy,
// the payload behind GET /queue/status.
type Status struct {
	Queued        int `json:"queued"`
	Active        int `json:"active"`
	Completed     int `json:"completed"`
	MaxConcurrent int `json:"maxConcurrent"`
}
