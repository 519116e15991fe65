package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Poutchouli/PingMeDaddy/internal/apierr"
	"github.com/Poutchouli/PingMeDaddy/internal/probe"
)

// handleTraceroute runs an on-demand traceroute to a target's IP, with a
// default 25s timeout capped at 60s.
func (s *Server) handleTraceroute(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	target, err := s.targets.GetTarget(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	maxHops := 30
	if v := c.Query("max_hops"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxHops = n
		}
	}

	timeout := 25 * time.Second
	if v := c.Query("timeout"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			timeout = time.Duration(n) * time.Second
		}
	}
	if timeout > 60*time.Second {
		timeout = 60 * time.Second
	}

	result, err := s.tracer.Traceroute(c.Request.Context(), target.IP, maxHops, timeout)
	if err != nil {
		switch err {
		case probe.ErrToolUnavailable:
			writeError(c, apierr.ErrToolUnavailable)
		case probe.ErrToolTimeout:
			writeError(c, apierr.ErrToolTimeout)
		default:
			writeError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
