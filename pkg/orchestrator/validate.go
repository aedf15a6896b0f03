package orchestrator

import (
	"fmt"
	"strings"
)

// validateRequest enforces the request invariants: non-empty theme, at
// least one non-empty keyword, and an ExistingObjects entry named ExitDoor
// (case-insensitive).
func validateRequest(req Request) error {
	if strings.TrimSpace(req.Theme) == "" {
		return newValidationError("theme must not be empty")
	}

	hasKeyword := false
	for _, k := range req.Keywords {
		if strings.TrimSpace(k) != "" {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return newValidationError("keywords must contain at least one non-empty entry")
	}

	hasExitDoor := false
	for _, obj := range req.ExistingObjects {
		if strings.EqualFold(obj.Name, "ExitDoor") {
			hasExitDoor = true
			break
		}
	}
	if !hasExitDoor {
		return newValidationError("existingObjects must contain an entry named ExitDoor")
	}

	return nil
}

// validateScenario enforces the scenario shape: at least one object
// instruction, and the first instruction must be the game manager.
func validateScenario(s Scenario) error {
	if len(s.ObjectInstructions) == 0 {
		return newValidationError("scenario must contain at least one object instruction")
	}

	first := s.ObjectInstructions[0]
	if first.Type != TypeGameManager || first.Name != "GameManager" {
		return newValidationError(fmt.Sprintf(
			"first object instruction must be {type:game_manager, name:GameManager}, got {type:%s, name:%s}",
			first.Type, first.Name))
	}

	return nil
}

// normalizeDifficulty fills in "normal" when the request omits a difficulty.
func normalizeDifficulty(d Difficulty) Difficulty {
	if d == "" {
		return DifficultyNormal
	}
	return d
}
