// Package orchestrator sequences one job's pipeline: request validation,
// scenario generation, parallel model-generation fan-out, sharded
// script-generation, model-completion join, and final bundle assembly.
package orchestrator

import (
	"context"
	"encoding/json"
)

// Difficulty is the requested escape-room difficulty.
type Difficulty string

// Supported difficulties; Normal is the default when a request omits it.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// ExistingObject references an object already present in the scene, such as
// the mandatory exit door.
type ExistingObject struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Request is the inbound asset-bundle generation request. UUID is supplied
// by the caller and echoed back verbatim in the resulting bundle; it is not
// the tracking id (ruid), which the queue allocates at admission.
type Request struct {
	UUID            string           `json:"uuid"`
	Theme           string           `json:"theme"`
	Keywords        []string         `json:"keywords"`
	Difficulty      Difficulty       `json:"difficulty"`
	ExistingObjects []ExistingObject `json:"existingObjects"`
	IsFreeModeling  bool             `json:"isFreeModeling"`
}

// InstructionType classifies one ObjectInstruction.
type InstructionType string

// Supported instruction types.
const (
	TypeGameManager               InstructionType = "game_manager"
	TypeExistingInteractiveObject InstructionType = "existing_interactive_object"
	TypeInteractiveObject         InstructionType = "interactive_object"
)

// ObjectInstruction is one LLM-emitted specification for a game object.
type ObjectInstruction struct {
	Name                    string          `json:"name"`
	Type                    InstructionType `json:"type"`
	VisualDescription       string          `json:"visual_description,omitempty"`
	SimpleVisualDescription string          `json:"simple_visual_description,omitempty"`
}

// descriptionFor returns the description field GenerateModel should use for
// this instruction, selected by isFreeModeling, and whether one was present.
func (o ObjectInstruction) descriptionFor(isFreeModeling bool) (string, bool) {
	desc := o.VisualDescription
	if isFreeModeling {
		desc = o.SimpleVisualDescription
	}
	return desc, desc != ""
}

// qualifiesForModelGeneration reports whether this instruction should be
// submitted to the mesh driver: neither a game manager nor a reference to an
// already-existing object, and the selected description field is non-empty.
func (o ObjectInstruction) qualifiesForModelGeneration(isFreeModeling bool) bool {
	if o.Type == TypeGameManager || o.Type == TypeExistingInteractiveObject {
		return false
	}
	_, ok := o.descriptionFor(isFreeModeling)
	return ok
}

// ScenarioData is the narrative payload of a Scenario.
type ScenarioData struct {
	Theme           string `json:"theme"`
	Description     string `json:"description"`
	EscapeCondition string `json:"escape_condition"`
	PuzzleFlow      string `json:"puzzle_flow"`
}

// Scenario is the validated LLM scenario-generation output.
type Scenario struct {
	ScenarioData       ScenarioData        `json:"scenario_data"`
	ObjectInstructions []ObjectInstruction `json:"object_instructions"`
	ModelScales        map[string]float64  `json:"model_scales,omitempty"`
}

// TrackingResult is the pair of maps attached to the final bundle: one
// bucket per generation attempt, never both for the same object.
type TrackingResult struct {
	Tracking     map[string]string `json:"-"`
	FailedModels map[string]string `json:"-"`
}

// ScenarioRequest is the JSON payload sent to LlmClient.GenerateScenario.
type ScenarioRequest struct {
	UUID                string           `json:"uuid"`
	Ruid                string           `json:"ruid"`
	Theme               string           `json:"theme"`
	Difficulty          string           `json:"difficulty"`
	Keywords            []string         `json:"keywords"`
	ExistingObjects     []ExistingObject `json:"existing_objects"`
	ExistingObjectCount int              `json:"existing_objects_count"`
	IsFreeModeling      bool             `json:"is_free_modeling"`
}

// ScriptsRequest is the JSON payload sent to LlmClient.GenerateScripts for
// the single-call (non-batched) strategy.
type ScriptsRequest struct {
	ScenarioData       ScenarioData        `json:"scenario_data"`
	ObjectInstructions []ObjectInstruction `json:"object_instructions"`
}

// LlmClient is the interface the orchestrator consumes for both scenario and
// script generation. Concrete HTTP wiring lives in package llmclient.
type LlmClient interface {
	GenerateScenario(ctx context.Context, prompt string, input ScenarioRequest) (json.RawMessage, error)
	GenerateScripts(ctx context.Context, prompt string, input any) (map[string]string, error)
}

// ModelDriver is the subset of mesh.Driver the orchestrator depends on.
type ModelDriver interface {
	GenerateModel(ctx context.Context, prompt, objectName string, attemptIndex int) string
}

// Bundle is the final JSON result produced by createRoom, for both success
// and failure paths. Fields are stable and form the result's compatibility
// surface.
type Bundle struct {
	UUID          string            `json:"uuid"`
	Ruid          string            `json:"ruid"`
	Theme         string            `json:"theme,omitempty"`
	Difficulty    Difficulty        `json:"difficulty,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
	Scenario      *Scenario         `json:"scenario,omitempty"`
	Scripts       map[string]string `json:"scripts,omitempty"`
	ModelTracking map[string]any    `json:"model_tracking,omitempty"`
	Success       bool              `json:"success"`
	Timestamp     string            `json:"timestamp"`
	Error         string            `json:"error,omitempty"`
}
