package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Poutchouli/PingMeDaddy/internal/analytics"
	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

// handleInsights runs the windowed analytics algorithm end to end: window
// alignment, resolution selection, fetch, compute. Results are cached for a
// short TTL keyed on (target, window, bucket) since Insights is the most
// expensive read on the API.
func (s *Server) handleInsights(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}

	windowMinutes := 60
	if v := c.Query("window_minutes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			windowMinutes = n
		}
	}
	if windowMinutes < 1 || windowMinutes > 1440 {
		badRequest(c, "window_minutes must be in [1, 1440]")
		return
	}

	bucketSeconds := 60
	if v := c.Query("bucket_seconds"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			bucketSeconds = n
		}
	}
	if bucketSeconds < 1 {
		badRequest(c, "bucket_seconds must be >= 1")
		return
	}

	cacheKey := fmt.Sprintf("insights:%d:%d:%d", id, windowMinutes, bucketSeconds)
	if s.cache != nil {
		if cached, ok := s.cache.Get(c.Request.Context(), cacheKey); ok {
			c.Data(http.StatusOK, "application/json", cached)
			return
		}
	}

	start, end := analytics.AlignWindow(time.Now(), windowMinutes, bucketSeconds)
	resolution := analytics.PickResolution(windowMinutes, bucketSeconds)

	rows, err := s.samples.QueryAggregate(c.Request.Context(), id, start, end, resolution)
	if err != nil {
		writeError(c, err)
		return
	}

	var rawSamples []timeseries.PingSample
	if resolution == timeseries.ResolutionRaw {
		rawSamples, err = s.samples.QueryRaw(c.Request.Context(), id, start, 100000)
		if err != nil {
			writeError(c, err)
			return
		}
	}

	result := analytics.Compute(resolution, bucketSeconds, start, end, rows, rawSamples)

	body, err := json.Marshal(result)
	if err != nil {
		writeError(c, err)
		return
	}
	if s.cache != nil {
		s.cache.Set(c.Request.Context(), cacheKey, body, 30*time.Second)
	}
	c.Data(http.StatusOK, "application/json", body)
}
