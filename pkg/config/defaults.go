package config

import (
	"sync"
	"time"
)

var (
	builtinConfig     *Config
	builtinConfigOnce sync.Once
)

// Builtin returns the singleton built-in configuration (thread-safe,
// lazy-initialized). User-supplied YAML is merged on top of this via mergo,
// so every field here is a safe default for an empty or partial document.
func Builtin() *Config {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &Config{
		Queue: QueueConfig{
			WorkerCount:      10,
			ModelWorkerCount: 16,
			QueueCapacity:    0,
			GracePeriod:      60 * time.Second,
		},
		Timeouts: TimeoutsConfig{
			Scenario: 60 * time.Second,
			Script:   5 * time.Minute,
			Model:    10 * time.Minute,
		},
		Mesh: MeshConfig{
			PollInterval:    10 * time.Second,
			MaxPreviewPolls: 30,
			MaxRefinePolls:  30,
		},
		ScriptBatch: ScriptBatchConfig{
			ParallelThreshold: 10,
			FirstBatchSize:    5,
			BatchSize:         5,
		},
		Prompts: PromptsConfig{
			Scenario:       defaultScenarioPrompt,
			UnifiedScripts: defaultUnifiedScriptsPrompt,
			ScriptsBatch:   defaultScriptsBatchPrompt,
		},
	}
}

const (
	defaultScenarioPrompt = "Generate an escape room scenario for theme {{.theme}} " +
		"with keywords {{.keywords}} at difficulty {{.difficulty}}."
	defaultUnifiedScriptsPrompt = "Generate Unity C# scripts for every object in {{.object_instructions}}."
	defaultScriptsBatchPrompt   = "Generate Unity C# scripts for the batch {{.batch_index}}, " +
		"is_first_batch={{.is_first_batch}}."
)
