// Package httpapi is the thin HTTP façade over the probe scheduler,
// time-series store, analytics engine, and target registry: JWT auth, the
// target CRUD/lifecycle routes, raw/aggregate reads, CSV export, on-demand
// traceroute, and a live-tail WebSocket stream, built with gin.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Poutchouli/PingMeDaddy/internal/cache"
	"github.com/Poutchouli/PingMeDaddy/internal/probe"
	"github.com/Poutchouli/PingMeDaddy/internal/registry"
	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

// TargetService is the registry surface the HTTP layer depends on.
type TargetService interface {
	CreateTarget(ctx context.Context, ip string, frequencySeconds int, url, notes *string) (registry.Target, error)
	UpdateTarget(ctx context.Context, id int64, upd registry.TargetUpdate) (registry.Target, error)
	ListTargets(ctx context.Context) ([]registry.Target, error)
	PauseTarget(ctx context.Context, id int64) error
	ResumeTarget(ctx context.Context, id int64) (registry.Target, error)
	DeleteTarget(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, targetID int64, limit int) ([]registry.Event, error)
	GetTarget(ctx context.Context, id int64) (registry.Target, error)
}

// SampleReader is the store surface the HTTP layer reads through.
type SampleReader interface {
	QueryRaw(ctx context.Context, targetID int64, since time.Time, limit int) ([]timeseries.PingSample, error)
	StreamRaw(ctx context.Context, targetID int64, emit timeseries.StreamRawFunc) error
	QueryAggregate(ctx context.Context, targetID int64, from, to time.Time, resolution timeseries.Resolution) ([]timeseries.AggregateRow, error)
}

// Tracer runs an on-demand traceroute.
type Tracer interface {
	Traceroute(ctx context.Context, ip string, maxHops int, timeout time.Duration) (probe.TraceResult, error)
}

type realTracer struct{}

func (realTracer) Traceroute(ctx context.Context, ip string, maxHops int, timeout time.Duration) (probe.TraceResult, error) {
	return probe.Traceroute(ctx, ip, maxHops, timeout)
}

// Server holds every dependency the HTTP layer needs and builds the gin
// router. It is the construction root's handle on the API surface.
type Server struct {
	targets TargetService
	samples SampleReader
	tracer  Tracer
	cache   cache.Cache
	streams Streamer

	adminUsername     string
	adminPasswordHash string
	jwtSecret         string
	tokenLifetime     time.Duration

	corsOrigins []string
}

// Options configures a new Server. Tracer defaults to the real os/exec
// traceroute implementation when left nil.
type Options struct {
	Targets TargetService
	Samples SampleReader
	Tracer  Tracer
	Cache   cache.Cache
	Streams Streamer

	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	TokenLifetime     time.Duration
	CORSOrigins       []string
}

// New builds a Server from opts.
func New(opts Options) *Server {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = realTracer{}
	}
	return &Server{
		targets:           opts.Targets,
		samples:           opts.Samples,
		tracer:            tracer,
		cache:             opts.Cache,
		streams:           opts.Streams,
		adminUsername:     opts.AdminUsername,
		adminPasswordHash: opts.AdminPasswordHash,
		jwtSecret:         opts.JWTSecret,
		tokenLifetime:     opts.TokenLifetime,
		corsOrigins:       opts.CORSOrigins,
	}
}

// Router builds the gin engine with every route wired up.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())

	r.POST("/auth/login", s.handleLogin)

	api := r.Group("/")
	api.Use(s.authMiddleware())
	{
		api.POST("/targets/", s.handleCreateTarget)
		api.GET("/targets/", s.handleListTargets)
		api.PATCH("/targets/:id", s.handleUpdateTarget)
		api.POST("/targets/:id/pause", s.handlePauseTarget)
		api.POST("/targets/:id/resume", s.handleResumeTarget)
		api.DELETE("/targets/:id", s.handleDeleteTarget)
		api.GET("/targets/:id/logs", s.handleListLogs)
		api.GET("/targets/:id/logs/export", s.handleExportLogs)
		api.GET("/targets/:id/events", s.handleListEvents)
		api.GET("/targets/:id/insights", s.handleInsights)
		api.POST("/targets/:id/traceroute", s.handleTraceroute)
		api.GET("/targets/:id/stream", s.handleStream)
	}

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(origin, s.corsOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
