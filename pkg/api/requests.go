package api

import "github.com/codeready-toolchain/eroom/pkg/orchestrator"

// createRoomRequest is the JSON body of POST /room/create.
type createRoomRequest struct {
	UUID            string                        `json:"uuid"`
	Theme           string                        `json:"theme" binding:"required"`
	Keywords        []string                      `json:"keywords"`
	Difficulty      orchestrator.Difficulty       `json:"difficulty"`
	ExistingObjects []orchestrator.ExistingObject `json:"existingObjects"`
	IsFreeModeling  bool                          `json:"isFreeModeling"`
}

func (r createRoomRequest) toOrchestratorRequest() orchestrator.Request {
	return orchestrator.Request{
		UUID:            r.UUID,
		Theme:           r.Theme,
		Keywords:        r.Keywords,
		Difficulty:      r.Difficulty,
		ExistingObjects: r.ExistingObjects,
		IsFreeModeling:  r.IsFreeModeling,
	}
}
