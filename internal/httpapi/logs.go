package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

func (s *Server) handleListLogs(c *gin.Context) {
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
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	samples, err := s.samples.QueryRaw(c.Request.Context(), id, time.Time{}, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, samples)
}

// handleExportLogs streams every raw sample for a target as CSV without
// materialising the full result set in memory, using the store's StreamRaw
// cursor.
func (s *Server) handleExportLogs(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}

	target, err := s.targets.GetTarget(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="target-%d-samples.csv"`, id))
	c.Status(http.StatusOK)

	w := c.Writer
	fmt.Fprintln(w, "time,target_id,target_ip,latency_ms,hops,packet_loss")
	flusher, canFlush := w.(interface{ Flush() })

	// A mid-stream error leaves the client with a truncated file rather than
	// a clean error body — the response has already started, so that's the
	// best CSV streaming can do.
	_ = s.samples.StreamRaw(c.Request.Context(), id, func(sample timeseries.PingSample) error {
		latency := ""
		if sample.LatencyMs != nil {
			latency = strconv.FormatFloat(*sample.LatencyMs, 'f', -1, 64)
		}
		hops := ""
		if sample.Hops != nil {
			hops = strconv.Itoa(*sample.Hops)
		}
		_, err := fmt.Fprintf(w, "%s,%d,%s,%s,%s,%t\n",
			sample.Time.Format(time.RFC3339Nano), sample.TargetID, target.IP, latency, hops, sample.PacketLoss)
		if err == nil && canFlush {
			flusher.Flush()
		}
		return err
	})
}
