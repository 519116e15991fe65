package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Poutchouli/PingMeDaddy/internal/apierr"
)

// writeError maps the sentinel error taxonomy to an HTTP status and writes
// the standard {"detail": "..."} body. Unmapped errors are treated as 500s
// and never leak internal error text to the client.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apierr.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apierr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apierr.ErrDuplicateTarget),
		errors.Is(err, apierr.ErrInvalidIP),
		errors.Is(err, apierr.ErrInvalidFrequency):
		status = http.StatusBadRequest
	case errors.Is(err, apierr.ErrToolUnavailable),
		errors.Is(err, apierr.ErrToolTimeout),
		errors.Is(err, apierr.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal error"
	}
	c.JSON(status, gin.H{"detail": detail})
}

func badRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": detail})
}
