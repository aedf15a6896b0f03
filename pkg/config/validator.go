package config

import "fmt"

// Validate runs fail-fast checks across every configuration section. The
// first violation found is returned wrapped in a ValidationError.
func Validate(cfg *Config) error {
	if err := validateQueue(cfg.Queue); err != nil {
		return err
	}
	if err := validateTimeouts(cfg.Timeouts); err != nil {
		return err
	}
	if err := validateMesh(cfg.Mesh); err != nil {
		return err
	}
	if err := validateScriptBatch(cfg.ScriptBatch); err != nil {
		return err
	}
	if err := validatePrompts(cfg.Prompts); err != nil {
		return err
	}
	return nil
}

func validateQueue(q QueueConfig) error {
	if q.WorkerCount < 1 {
		return NewValidationError("queue", "worker_count", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if q.ModelWorkerCount < 1 {
		return NewValidationError("queue", "model_worker_count", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if q.QueueCapacity < 0 {
		return NewValidationError("queue", "queue_capacity", fmt.Errorf("%w: must be >= 0 (0 = unbounded)", ErrInvalidValue))
	}
	if q.GracePeriod <= 0 {
		return NewValidationError("queue", "grace_period", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	return nil
}

func validateTimeouts(t TimeoutsConfig) error {
	if t.Scenario <= 0 {
		return NewValidationError("timeouts", "scenario", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if t.Script <= 0 {
		return NewValidationError("timeouts", "script", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if t.Model <= 0 {
		return NewValidationError("timeouts", "model", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	return nil
}

func validateMesh(m MeshConfig) error {
	if m.PollInterval <= 0 {
		return NewValidationError("mesh", "poll_interval", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if m.MaxPreviewPolls < 1 {
		return NewValidationError("mesh", "max_preview_polls", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if m.MaxRefinePolls < 1 {
		return NewValidationError("mesh", "max_refine_polls", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	return nil
}

func validateScriptBatch(s ScriptBatchConfig) error {
	if s.ParallelThreshold < 1 {
		return NewValidationError("script_batch", "parallel_threshold", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if s.FirstBatchSize < 1 {
		return NewValidationError("script_batch", "first_batch_size", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if s.BatchSize < 1 {
		return NewValidationError("script_batch", "batch_size", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	return nil
}

func validatePrompts(p PromptsConfig) error {
	if p.Scenario == "" {
		return NewValidationError("prompts", "scenario", ErrMissingRequiredField)
	}
	if p.UnifiedScripts == "" {
		return NewValidationError("prompts", "unified_scripts", ErrMissingRequiredField)
	}
	if p.ScriptsBatch == "" {
		return NewValidationError("prompts", "scripts_batch", ErrMissingRequiredField)
	}
	return nil
}
