package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/eroom/pkg/config"
)

// scriptsBatchRequest is the JSON payload sent to LlmClient.GenerateScripts
// for the batched strategy.
type scriptsBatchRequest struct {
	ScenarioData       ScenarioData        `json:"scenario_data"`
	ObjectInstructions []ObjectInstruction `json:"object_instructions"`
	IsFirstBatch       bool                `json:"is_first_batch"`
	GameManagerScript  string              `json:"game_manager_script,omitempty"`
	BatchIndex         int                 `json:"batch_index"`
	ModelScales        map[string]float64  `json:"model_scales,omitempty"`
}

// batchResult is one concurrent batch's outcome, carrying enough context to
// log a useful diagnostic if it under-delivered.
type batchResult struct {
	index   int
	scripts map[string]string
	names   []string
	err     error
}

// runScriptBatcher implements the batched script-generation strategy: a
// serial first batch containing every game_manager instruction plus the
// first FirstBatchSize non-game-manager instructions, then the remaining
// instructions chunked into BatchSize batches run concurrently under a
// shared deadline.
func runScriptBatcher(ctx context.Context, llm LlmClient, prompt string, scenario Scenario, cfg config.ScriptBatchConfig, scriptTimeout time.Duration) (map[string]string, error) {
	managers, others := splitGameManagers(scenario.ObjectInstructions)

	firstCount := cfg.FirstBatchSize
	if firstCount > len(others) {
		firstCount = len(others)
	}
	firstBatch := append(append([]ObjectInstruction{}, managers...), others[:firstCount]...)
	remaining := others[firstCount:]

	firstScripts, err := invokeBatch(ctx, llm, prompt, scenario, firstBatch, true, "", 0)
	if err != nil {
		return nil, newUpstreamError("scripts-first-batch", err)
	}
	gameManagerScript, ok := firstScripts["GameManager"]
	if !ok {
		return nil, newUpstreamError("scripts-first-batch", fmt.Errorf("first batch response missing required key %q", "GameManager"))
	}

	merged := make(map[string]string, len(firstScripts))
	for k, v := range firstScripts {
		merged[k] = v
	}
	logUnderdelivery(0, firstBatch, firstScripts)

	if len(remaining) == 0 {
		return merged, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	batches := chunkInstructions(remaining, cfg.BatchSize, firstCount+len(managers))

	results := make(chan batchResult, len(batches))
	var wg sync.WaitGroup
	for _, b := range batches {
		wg.Add(1)
		go func(b instructionBatch) {
			defer wg.Done()
			scripts, err := invokeBatch(batchCtx, llm, prompt, scenario, b.instructions, false, gameManagerScript, b.startIndex)
			names := make([]string, len(b.instructions))
			for i, inst := range b.instructions {
				names[i] = inst.Name
			}
			results <- batchResult{index: b.startIndex, scripts: scripts, names: names, err: err}
		}(b)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var ordered []batchResult
	for r := range results {
		ordered = append(ordered, r)
	}

	// Merge in ascending start-index order so a later batch's key wins a
	// collision, per the "later writers overwrite" merge rule. Any failed
	// batch fails the whole stage.
	sortBatchResults(ordered)
	for _, r := range ordered {
		if r.err != nil {
			if batchCtx.Err() != nil {
				return nil, fmt.Errorf("%w: script batch %d: %v", ErrStageTimeout, r.index, r.err)
			}
			return nil, newUpstreamError(fmt.Sprintf("scripts-batch-%d", r.index), r.err)
		}
		for k, v := range r.scripts {
			merged[k] = v
		}
		logUnderdeliveryNames(r.index, r.names, r.scripts)
	}

	return merged, nil
}

type instructionBatch struct {
	startIndex   int
	instructions []ObjectInstruction
}

func chunkInstructions(instructions []ObjectInstruction, batchSize, startOffset int) []instructionBatch {
	var batches []instructionBatch
	for i := 0; i < len(instructions); i += batchSize {
		end := i + batchSize
		if end > len(instructions) {
			end = len(instructions)
		}
		batches = append(batches, instructionBatch{
			startIndex:   startOffset + i,
			instructions: instructions[i:end],
		})
	}
	return batches
}

func sortBatchResults(results []batchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].index < results[j-1].index; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func splitGameManagers(instructions []ObjectInstruction) (managers, others []ObjectInstruction) {
	for _, inst := range instructions {
		if inst.Type == TypeGameManager {
			managers = append(managers, inst)
		} else {
			others = append(others, inst)
		}
	}
	return managers, others
}

func invokeBatch(ctx context.Context, llm LlmClient, prompt string, scenario Scenario, batch []ObjectInstruction, isFirst bool, gameManagerScript string, batchIndex int) (map[string]string, error) {
	scales := make(map[string]float64, len(batch))
	for _, inst := range batch {
		if v, ok := scenario.ModelScales[inst.Name]; ok {
			scales[inst.Name] = v
		}
	}

	req := scriptsBatchRequest{
		ScenarioData:       scenario.ScenarioData,
		ObjectInstructions: batch,
		IsFirstBatch:       isFirst,
		GameManagerScript:  gameManagerScript,
		BatchIndex:         batchIndex,
		ModelScales:        scales,
	}
	return llm.GenerateScripts(ctx, prompt, req)
}

func logUnderdelivery(batchIndex int, batch []ObjectInstruction, scripts map[string]string) {
	names := make([]string, len(batch))
	for i, inst := range batch {
		names[i] = inst.Name
	}
	logUnderdeliveryNames(batchIndex, names, scripts)
}

// logUnderdeliveryNames logs (diagnostics only, never fails the stage) the
// names of objects in a batch that did not receive a script.
func logUnderdeliveryNames(batchIndex int, names []string, scripts map[string]string) {
	if len(scripts) >= len(names) {
		return
	}
	var missing []string
	for _, name := range names {
		if _, ok := scripts[name]; !ok && name != "GameManager" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slog.Warn("Script batch returned fewer scripts than objects", "batch_index", batchIndex, "missing_objects", missing)
	}
}
