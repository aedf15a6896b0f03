package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// createRoomHandler handles POST /room/create.
func (s *Server) createRoomHandler(c *gin.Context) {
	var body createRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ruid, err := s.queue.Submit(body.toOrchestratorRequest())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ruid": ruid})
}

// roomStatusHandler handles GET /room/status/:ruid. Non-terminal jobs return
// {ruid, status}; terminal jobs return the full result bundle.
func (s *Server) roomStatusHandler(c *gin.Context) {
	ruid := c.Param("ruid")

	state, ok := s.store.Get(ruid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ruid"})
		return
	}

	if !state.Status.IsTerminal() {
		c.JSON(http.StatusOK, gin.H{"ruid": ruid, "status": state.Status})
		return
	}

	c.JSON(http.StatusOK, state.Result)
}

// deleteRoomHandler handles DELETE /room/:ruid. Always 200 for a known id;
// has no effect on a job currently being processed.
func (s *Server) deleteRoomHandler(c *gin.Context) {
	ruid := c.Param("ruid")

	if _, ok := s.store.Get(ruid); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ruid"})
		return
	}

	s.store.Delete(ruid)
	c.JSON(http.StatusOK, gin.H{"ruid": ruid, "deleted": true})
}

// queueStatusHandler handles GET /queue/status.
func (s *Server) queueStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.queue.Status())
}
