package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/eroom/pkg/config"
)

// Orchestrator sequences one job through validate -> scenario -> (models ||
// scripts) -> join -> bundle. One Orchestrator is shared across every
// worker; it holds no per-job state.
type Orchestrator struct {
	llm         LlmClient
	modelDriver ModelDriver
	cfg         *config.Config

	// modelSem bounds the internal model-generation fan-out pool,
	// separate from and larger than the job worker pool.
	modelSem chan struct{}
}

// New builds an Orchestrator over the given LLM and mesh model-generation
// collaborators, sized per cfg.Queue.ModelWorkerCount.
func New(llm LlmClient, modelDriver ModelDriver, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		llm:         llm,
		modelDriver: modelDriver,
		cfg:         cfg,
		modelSem:    make(chan struct{}, cfg.Queue.ModelWorkerCount),
	}
}

// modelFuture carries one object's eventual model-generation result.
type modelFuture struct {
	name  string
	index int
	done  chan string
}

// CreateRoom runs the full pipeline for one job and always returns a
// well-formed bundle — validation failures, upstream rejections, and
// timeouts are all converted to an error bundle rather than propagated.
func (o *Orchestrator) CreateRoom(ctx context.Context, req Request, ruid string) (bundle *Bundle) {
	log := slog.With("ruid", ruid, "uuid", req.UUID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic recovered in createRoom", "panic", r)
			bundle = errorBundle(ruid, req, fmt.Sprintf("internal error: %v", r))
		}
	}()

	req.Difficulty = normalizeDifficulty(req.Difficulty)

	// Stage 1 — Validate.
	if err := validateRequest(req); err != nil {
		log.Warn("Request validation failed", "error", err)
		return errorBundle(ruid, req, err.Error())
	}

	// Stage 2 — Scenario generation.
	scenario, err := o.generateScenario(ctx, req, ruid)
	if err != nil {
		log.Warn("Scenario generation failed", "error", err)
		return errorBundle(ruid, req, err.Error())
	}

	// Stage 3 — Kick off model generation (non-blocking).
	futures := o.startModelGeneration(ctx, *scenario, req.IsFreeModeling)

	// Stage 4 — Script generation (blocks Stage 5).
	scripts, err := o.generateScripts(ctx, *scenario)
	if err != nil {
		log.Warn("Script generation failed", "error", err)
		return errorBundle(ruid, req, err.Error())
	}
	if len(scripts) == 0 {
		return errorBundle(ruid, req, "script generation produced an empty result")
	}

	// Stage 5 — Join models.
	tracking := o.joinModels(ctx, futures)

	// Stage 6 — Bundle.
	return successBundle(ruid, req, *scenario, scripts, tracking)
}

func (o *Orchestrator) generateScenario(ctx context.Context, req Request, ruid string) (*Scenario, error) {
	scenarioCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Scenario)
	defer cancel()

	input := ScenarioRequest{
		UUID:                req.UUID,
		Ruid:                ruid,
		Theme:               req.Theme,
		Difficulty:          string(req.Difficulty),
		Keywords:            req.Keywords,
		ExistingObjects:     req.ExistingObjects,
		ExistingObjectCount: len(req.ExistingObjects),
		IsFreeModeling:      req.IsFreeModeling,
	}

	raw, err := o.llm.GenerateScenario(scenarioCtx, o.cfg.Prompts.Scenario, input)
	if err != nil {
		return nil, newUpstreamError("scenario", err)
	}
	if len(raw) == 0 {
		return nil, newUpstreamError("scenario", fmt.Errorf("scenario generation failed: empty response"))
	}

	var scenario Scenario
	if err := json.Unmarshal(raw, &scenario); err != nil {
		return nil, newUpstreamError("scenario", fmt.Errorf("malformed scenario response: %w", err))
	}

	if err := validateScenario(scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// startModelGeneration submits one mesh-generation task per qualifying
// object instruction to the bounded model worker pool and returns
// unresolved futures without waiting on any of them.
func (o *Orchestrator) startModelGeneration(ctx context.Context, scenario Scenario, isFreeModeling bool) []modelFuture {
	futures := make([]modelFuture, 0, len(scenario.ObjectInstructions))

	for i, inst := range scenario.ObjectInstructions {
		if !inst.qualifiesForModelGeneration(isFreeModeling) {
			continue
		}
		desc, _ := inst.descriptionFor(isFreeModeling)

		f := modelFuture{name: inst.Name, index: i, done: make(chan string, 1)}
		futures = append(futures, f)

		index, name, prompt := i, inst.Name, desc
		go func() {
			o.modelSem <- struct{}{}
			defer func() { <-o.modelSem }()
			f.done <- o.modelDriver.GenerateModel(ctx, prompt, name, index)
		}()
	}

	return futures
}

// joinModels waits for all model futures up to the configured global
// deadline, harvesting whatever has already completed and marking the rest
// as timed out. Results are classified by id prefix into tracking vs
// failed_models.
func (o *Orchestrator) joinModels(ctx context.Context, futures []modelFuture) TrackingResult {
	result := TrackingResult{
		Tracking:     make(map[string]string),
		FailedModels: make(map[string]string),
	}

	deadline := time.Now().Add(o.cfg.Timeouts.Model)
	ts := deadline.Format(time.RFC3339)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(len(futures))

	for _, f := range futures {
		go func(f modelFuture) {
			defer wg.Done()
			select {
			case id := <-f.done:
				mu.Lock()
				classify(result, f.name, id, ts)
				mu.Unlock()
			case <-time.After(time.Until(deadline)):
				mu.Lock()
				result.FailedModels[f.name] = fmt.Sprintf("timeout-%d-%s", f.index, ts)
				mu.Unlock()
			case <-ctx.Done():
				mu.Lock()
				result.FailedModels[f.name] = fmt.Sprintf("timeout-%d-%s", f.index, ts)
				mu.Unlock()
			}
		}(f)
	}

	wg.Wait()
	return result
}

func classify(result TrackingResult, name, id, ts string) {
	switch {
	case id == "":
		result.FailedModels[name] = fmt.Sprintf("no-tracking-%s", ts)
	case strings.HasPrefix(id, "error-") || strings.HasPrefix(id, "timeout-"):
		result.FailedModels[name] = id
	default:
		result.Tracking[name] = id
	}
}

func (o *Orchestrator) generateScripts(ctx context.Context, scenario Scenario) (map[string]string, error) {
	scriptCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Script)
	defer cancel()

	if len(scenario.ObjectInstructions) < o.cfg.ScriptBatch.ParallelThreshold {
		input := ScriptsRequest{
			ScenarioData:       scenario.ScenarioData,
			ObjectInstructions: scenario.ObjectInstructions,
		}
		scripts, err := o.llm.GenerateScripts(scriptCtx, o.cfg.Prompts.UnifiedScripts, input)
		if err != nil {
			return nil, newUpstreamError("scripts", err)
		}
		return scripts, nil
	}

	scripts, err := runScriptBatcher(scriptCtx, o.llm, o.cfg.Prompts.ScriptsBatch, scenario, o.cfg.ScriptBatch, o.cfg.Timeouts.Script)
	if err != nil {
		return nil, err
	}
	return scripts, nil
}

func errorBundle(ruid string, req Request, errMsg string) *Bundle {
	return &Bundle{
		UUID:       req.UUID,
		Ruid:       ruid,
		Theme:      req.Theme,
		Difficulty: req.Difficulty,
		Keywords:   req.Keywords,
		Success:    false,
		Error:      errMsg,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
}

func successBundle(ruid string, req Request, scenario Scenario, scripts map[string]string, tracking TrackingResult) *Bundle {
	suffixed := make(map[string]string, len(scripts))
	for name, content := range scripts {
		if !strings.HasSuffix(name, ".cs") {
			name += ".cs"
		}
		suffixed[name] = content
	}

	modelTracking := make(map[string]any, len(tracking.Tracking)+1)
	for name, id := range tracking.Tracking {
		modelTracking[name] = id
	}
	if len(tracking.FailedModels) > 0 {
		modelTracking["failed_models"] = tracking.FailedModels
	}

	return &Bundle{
		UUID:          req.UUID,
		Ruid:          ruid,
		Theme:         req.Theme,
		Difficulty:    req.Difficulty,
		Keywords:      req.Keywords,
		Scenario:      &scenario,
		Scripts:       suffixed,
		ModelTracking: modelTracking,
		Success:       true,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
}
