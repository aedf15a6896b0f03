package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("EROOM_TEST_KEY", "secret123")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "braced form", input: "key: ${EROOM_TEST_KEY}", want: "key: secret123"},
		{name: "bare form", input: "key: $EROOM_TEST_KEY", want: "key: secret123"},
		{name: "missing variable expands empty", input: "key: ${EROOM_MISSING}", want: "key: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestLoadAppliesBuiltinDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Builtin().Queue.WorkerCount, cfg.Queue.WorkerCount)
	assert.Equal(t, Builtin().Prompts.Scenario, cfg.Prompts.Scenario)
}

func TestLoadMergesUserOverridesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eroom.yaml")
	doc := "queue:\n  worker_count: 3\ntimeouts:\n  scenario: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Queue.WorkerCount)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Scenario)
	// Untouched sections keep their builtin defaults.
	assert.Equal(t, Builtin().Mesh.MaxPreviewPolls, cfg.Mesh.MaxPreviewPolls)
	assert.Equal(t, Builtin().Queue.ModelWorkerCount, cfg.Queue.ModelWorkerCount)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue: [this is not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestValidateRejectsZeroWorkerCount(t *testing.T) {
	cfg := *Builtin()
	cfg.Queue.WorkerCount = 0

	err := Validate(&cfg)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "queue", ve.Section)
}

func TestValidateRejectsEmptyPrompt(t *testing.T) {
	cfg := *Builtin()
	cfg.Prompts.Scenario = ""

	err := Validate(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestBuiltinIsSingleton(t *testing.T) {
	assert.Same(t, Builtin(), Builtin())
}
