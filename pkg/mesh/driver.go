package mesh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/eroom/pkg/config"
)

// TransientError marks an HTTP-call failure the driver should retry with the
// next rotated key rather than fail the stage outright.
type TransientError struct {
	StatusCode int // 0 for network-level errors (no response received)
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transient mesh call failure: %v", e.Err)
	}
	return fmt.Sprintf("transient mesh call failure (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether an HTTP status code implies the driver should
// rotate keys and retry: 401/403/429 or any 5xx. Network errors carry no
// status code and are wrapped in TransientError directly by the client.
func IsTransient(statusCode int) bool {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return statusCode >= 500
}

// Driver runs the two-phase preview/refine protocol for one object,
// rotating keys on transient failures and bounding each phase by a fixed
// poll count and interval.
type Driver struct {
	client  Client
	rotator *KeyRotator
	cfg     config.MeshConfig
}

// NewDriver builds a driver over client, rotating keys from rotator and
// bounding polling per cfg.
func NewDriver(client Client, rotator *KeyRotator, cfg config.MeshConfig) *Driver {
	return &Driver{client: client, rotator: rotator, cfg: cfg}
}

// GenerateModel runs the preview -> refine protocol for one object and
// always returns: either an fbx URL, or a typed error tag prefixed
// "error-" or "timeout-". It never panics and never returns an empty,
// un-prefixed string on failure.
func (d *Driver) GenerateModel(ctx context.Context, prompt, objectName string, attemptIndex int) string {
	log := slog.With("object_name", objectName, "attempt_index", attemptIndex)

	if !d.rotator.HasKeys() {
		log.Error("No mesh API keys configured")
		return fmt.Sprintf("error-preview-%s", uuid.NewString())
	}

	previewID, errTag := d.runPhase(ctx, log, KindPreview, "", prompt)
	if errTag != "" {
		return errTag
	}

	refineID, errTag := d.runPhase(ctx, log, KindRefine, previewID, "")
	if errTag != "" {
		return errTag
	}

	status, err := callWithRotation(d, ctx, log, "refine-status", func(key string) (TaskStatus, error) {
		return d.client.GetStatus(ctx, refineID, key)
	})
	if err != nil {
		log.Error("Failed to fetch final refine status", "error", err)
		return fmt.Sprintf("error-refine-%s", uuid.NewString())
	}

	if status.ModelURLs.FBX == "" {
		return fmt.Sprintf("error-no-fbx-%s", refineID)
	}
	return status.ModelURLs.FBX
}

// runPhase creates a task (preview has no parent, refine references
// previewID) and polls it to a terminal state. Returns the task id on
// success, or a typed error tag ("" taskID, non-"" tag) otherwise.
func (d *Driver) runPhase(ctx context.Context, log *slog.Logger, kind TaskKind, previewID, prompt string) (string, string) {
	stage := stageName(kind)

	taskID, err := callWithRotation(d, ctx, log, stage+"-create", func(key string) (string, error) {
		if kind == KindPreview {
			return d.client.CreatePreview(ctx, prompt, key)
		}
		return d.client.CreateRefine(ctx, previewID, key)
	})
	if err != nil {
		log.Error("Mesh task creation failed", "stage", stage, "error", err)
		return "", fmt.Sprintf("error-%s-%s", stage, uuid.NewString())
	}

	maxPolls := d.cfg.MaxPreviewPolls
	if kind == KindRefine {
		maxPolls = d.cfg.MaxRefinePolls
	}

	for poll := 0; poll < maxPolls; poll++ {
		select {
		case <-ctx.Done():
			return "", fmt.Sprintf("timeout-%s-%s", stage, taskID)
		case <-time.After(d.cfg.PollInterval):
		}

		status, err := callWithRotation(d, ctx, log, stage+"-status", func(key string) (TaskStatus, error) {
			return d.client.GetStatus(ctx, taskID, key)
		})
		if err != nil {
			log.Error("Mesh status poll failed", "stage", stage, "task_id", taskID, "error", err)
			return "", fmt.Sprintf("error-%s-%s", stage, uuid.NewString())
		}

		if !status.Status.IsTerminal() {
			continue
		}
		if status.Status == TaskSucceeded {
			return taskID, ""
		}
		return "", fmt.Sprintf("error-%s-%s", stage, taskID)
	}

	return "", fmt.Sprintf("timeout-%s-%s", stage, taskID)
}

// callWithRotation attempts call up to max(1, rotator.Count()) times,
// rotating to the next key after a transient failure. Polling loops call
// this once per poll tick; rotation retries inside one call never consume a
// poll slot.
func callWithRotation[T any](d *Driver, ctx context.Context, log *slog.Logger, op string, call func(key string) (T, error)) (T, error) {
	attempts := d.rotator.Count()
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		key := d.rotator.Next()
		result, err := call(key)
		if err == nil {
			return result, nil
		}

		var transient *TransientError
		if !errors.As(err, &transient) {
			return zero, fmt.Errorf("%s: fatal: %w", op, err)
		}
		lastErr = err
		log.Warn("Transient mesh call failure, rotating key", "op", op, "attempt", i+1, "error", err)
	}
	return zero, fmt.Errorf("%s: exhausted %d key(s): %w", op, attempts, lastErr)
}

func stageName(kind TaskKind) string {
	if kind == KindPreview {
		return "preview"
	}
	return "refine"
}
