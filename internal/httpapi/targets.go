package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Poutchouli/PingMeDaddy/internal/registry"
)

func targetID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid target id")
		return 0, false
	}
	return id, true
}

type createTargetRequest struct {
	IP        string  `json:"ip" binding:"required"`
	Frequency int     `json:"frequency_seconds" binding:"required"`
	URL       *string `json:"url"`
	Notes     *string `json:"notes"`
}

func (s *Server) handleCreateTarget(c *gin.Context) {
	var req createTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}

	target, err := s.targets.CreateTarget(c.Request.Context(), req.IP, req.Frequency, req.URL, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": target.ID, "message": "target created"})
}

func (s *Server) handleListTargets(c *gin.Context) {
	targets, err := s.targets.ListTargets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

type updateTargetRequest struct {
	Frequency *int    `json:"frequency_seconds"`
	URL       *string `json:"url"`
	Notes     *string `json:"notes"`
}

func (s *Server) handleUpdateTarget(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	var req updateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed request body")
		return
	}

	upd := registry.TargetUpdate{FrequencySeconds: req.Frequency}
	if req.URL != nil {
		upd.URL = &req.URL
	}
	if req.Notes != nil {
		upd.Notes = &req.Notes
	}

	target, err := s.targets.UpdateTarget(c.Request.Context(), id, upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

func (s *Server) handlePauseTarget(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	if err := s.targets.PauseTarget(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "paused", "id": id})
}

func (s *Server) handleResumeTarget(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	if _, err := s.targets.ResumeTarget(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "resumed", "id": id})
}

func (s *Server) handleDeleteTarget(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	if err := s.targets.DeleteTarget(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted", "id": id})
}

func (s *Server) handleListEvents(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	events, err := s.targets.ListEvents(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
