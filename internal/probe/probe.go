// Package probe executes single ping and traceroute probes against an IP
// target by shelling out to the platform's ping/traceroute binary and
// parsing its textual output.
package probe

import (
	"errors"
	"time"
)

// ProbeResult is the outcome of a single ping probe.
type ProbeResult struct {
	LatencyMs  *float64 `json:"latency_ms"`
	Hops       *int     `json:"hops"`
	PacketLoss bool     `json:"packet_loss"`
}

// Hop is a single line of traceroute output.
type Hop struct {
	Hop       int      `json:"hop"`
	Host      *string  `json:"host"`
	IP        *string  `json:"ip"`
	RTTMs     *float64 `json:"rtt_ms"`
	IsTimeout bool     `json:"is_timeout"`
	Raw       string   `json:"raw"`
}

// TraceResult is the outcome of a single traceroute probe.
type TraceResult struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs float64   `json:"duration_ms"`
	Hops       []Hop     `json:"hops"`
}

// ErrToolUnavailable means the traceroute/tracert binary could not be found.
var ErrToolUnavailable = errors.New("probe: tool unavailable")

// ErrToolTimeout means the overall traceroute invocation exceeded its timeout.
var ErrToolTimeout = errors.New("probe: tool timed out")
