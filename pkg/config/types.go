// Package config loads and validates the YAML document that configures the
// queue, pipeline timeouts, mesh polling, script batching, and prompt
// templates consumed by pkg/orchestrator, pkg/queue, and pkg/mesh.
package config

import "time"

// Config is the fully loaded, validated, ready-to-use configuration.
type Config struct {
	Queue       QueueConfig       `yaml:"queue"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts"`
	Mesh        MeshConfig        `yaml:"mesh"`
	ScriptBatch ScriptBatchConfig `yaml:"script_batch"`
	Prompts     PromptsConfig     `yaml:"prompts"`
}

// QueueConfig controls admission and worker pool sizing.
type QueueConfig struct {
	WorkerCount      int           `yaml:"worker_count"`
	ModelWorkerCount int           `yaml:"model_worker_count"`
	QueueCapacity    int           `yaml:"queue_capacity"` // 0 = unbounded
	GracePeriod      time.Duration `yaml:"grace_period"`
}

// TimeoutsConfig bounds the per-stage deadlines of the pipeline orchestrator.
type TimeoutsConfig struct {
	Scenario time.Duration `yaml:"scenario"`
	Script   time.Duration `yaml:"script"`
	Model    time.Duration `yaml:"model"`
}

// MeshConfig controls the two-phase mesh provider polling loop.
type MeshConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPreviewPolls int           `yaml:"max_preview_polls"`
	MaxRefinePolls  int           `yaml:"max_refine_polls"`
}

// ScriptBatchConfig controls the batched script-generation strategy.
type ScriptBatchConfig struct {
	ParallelThreshold int `yaml:"parallel_threshold"`
	FirstBatchSize    int `yaml:"first_batch_size"`
	BatchSize         int `yaml:"batch_size"`
}

// PromptsConfig holds the opaque prompt templates the core retrieves by name
// and hands to the LLM client without interpreting their contents.
type PromptsConfig struct {
	Scenario       string `yaml:"scenario"`
	UnifiedScripts string `yaml:"unified_scripts"`
	ScriptsBatch   string `yaml:"scripts_batch"`
}
