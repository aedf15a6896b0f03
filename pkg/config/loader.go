package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlDocument mirrors Config but keeps durations as their raw YAML strings,
// since time.Duration has no native YAML representation.
type yamlDocument struct {
	Queue       *yamlQueue       `yaml:"queue"`
	Timeouts    *yamlTimeouts    `yaml:"timeouts"`
	Mesh        *yamlMesh        `yaml:"mesh"`
	ScriptBatch *ScriptBatchConfig `yaml:"script_batch"`
	Prompts     *PromptsConfig   `yaml:"prompts"`
}

type yamlQueue struct {
	WorkerCount      *int    `yaml:"worker_count"`
	ModelWorkerCount *int    `yaml:"model_worker_count"`
	QueueCapacity    *int    `yaml:"queue_capacity"`
	GracePeriod      *string `yaml:"grace_period"`
}

type yamlTimeouts struct {
	Scenario *string `yaml:"scenario"`
	Script   *string `yaml:"script"`
	Model    *string `yaml:"model"`
}

type yamlMesh struct {
	PollInterval    *string `yaml:"poll_interval"`
	MaxPreviewPolls *int    `yaml:"max_preview_polls"`
	MaxRefinePolls  *int    `yaml:"max_refine_polls"`
}

// Load reads the YAML document at path, expands ${VAR}-style environment
// placeholders, merges it on top of the built-in defaults, and validates the
// result. path may be empty, in which case only built-in defaults apply.
func Load(path string) (*Config, error) {
	log := slog.With("config_path", path)

	cfg := *Builtin() // value copy: caller mutation never touches the singleton

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NewLoadError(path, fmt.Errorf("%w", ErrConfigNotFound))
			}
			return nil, NewLoadError(path, err)
		}

		expanded := ExpandEnv(raw)

		var doc yamlDocument
		if err := yaml.Unmarshal(expanded, &doc); err != nil {
			return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}

		overlay, err := doc.toConfig()
		if err != nil {
			return nil, NewLoadError(path, err)
		}

		if err := mergo.Merge(&cfg, overlay, mergo.WithOverride); err != nil {
			return nil, NewLoadError(path, fmt.Errorf("merge user config: %w", err))
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("Configuration loaded",
		"worker_count", cfg.Queue.WorkerCount,
		"model_worker_count", cfg.Queue.ModelWorkerCount,
		"queue_capacity", cfg.Queue.QueueCapacity)

	return &cfg, nil
}

// toConfig converts the raw YAML document into a Config overlay, leaving
// zero values wherever the document omitted a field so mergo.WithOverride
// only overwrites what was actually specified.
func (d yamlDocument) toConfig() (Config, error) {
	var cfg Config

	if d.Queue != nil {
		if d.Queue.WorkerCount != nil {
			cfg.Queue.WorkerCount = *d.Queue.WorkerCount
		}
		if d.Queue.ModelWorkerCount != nil {
			cfg.Queue.ModelWorkerCount = *d.Queue.ModelWorkerCount
		}
		if d.Queue.QueueCapacity != nil {
			cfg.Queue.QueueCapacity = *d.Queue.QueueCapacity
		}
		if d.Queue.GracePeriod != nil {
			dur, err := time.ParseDuration(*d.Queue.GracePeriod)
			if err != nil {
				return Config{}, fmt.Errorf("queue.grace_period: %w", err)
			}
			cfg.Queue.GracePeriod = dur
		}
	}

	if d.Timeouts != nil {
		var err error
		if cfg.Timeouts.Scenario, err = parseOptionalDuration(d.Timeouts.Scenario, "timeouts.scenario"); err != nil {
			return Config{}, err
		}
		if cfg.Timeouts.Script, err = parseOptionalDuration(d.Timeouts.Script, "timeouts.script"); err != nil {
			return Config{}, err
		}
		if cfg.Timeouts.Model, err = parseOptionalDuration(d.Timeouts.Model, "timeouts.model"); err != nil {
			return Config{}, err
		}
	}

	if d.Mesh != nil {
		var err error
		if cfg.Mesh.PollInterval, err = parseOptionalDuration(d.Mesh.PollInterval, "mesh.poll_interval"); err != nil {
			return Config{}, err
		}
		if d.Mesh.MaxPreviewPolls != nil {
			cfg.Mesh.MaxPreviewPolls = *d.Mesh.MaxPreviewPolls
		}
		if d.Mesh.MaxRefinePolls != nil {
			cfg.Mesh.MaxRefinePolls = *d.Mesh.MaxRefinePolls
		}
	}

	if d.ScriptBatch != nil {
		cfg.ScriptBatch = *d.ScriptBatch
	}

	if d.Prompts != nil {
		cfg.Prompts = *d.Prompts
	}

	return cfg, nil
}

func parseOptionalDuration(raw *string, field string) (time.Duration, error) {
	if raw == nil {
		return 0, nil
	}
	dur, err := time.ParseDuration(*raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return dur, nil
}
