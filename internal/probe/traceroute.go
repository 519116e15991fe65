package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

var (
	hopLineRegex  = regexp.MustCompile(`^\s*(\d+)\s+(.*)$`)
	hostIPRegex   = regexp.MustCompile(`([^\s()\[\]]+)\s*[(\[]([0-9a-fA-F.:]+)[)\]]`)
	bareIPRegex   = regexp.MustCompile(`^[0-9a-fA-F.:]+$`)
	hopRTTRegex   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ms`)
)

// Traceroute invokes the OS traceroute/tracert tool once, bounded by
// timeout. Unlike Ping, it surfaces real errors: ErrToolUnavailable when the
// binary is missing, ErrToolTimeout when the overall budget is exceeded.
// Individual hop timeouts are represented within TraceResult, not as errors.
func Traceroute(ctx context.Context, ip string, maxHops int, timeout time.Duration) (TraceResult, error) {
	binary := traceBinary()
	if _, err := exec.LookPath(binary); err != nil {
		return TraceResult{}, ErrToolUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now().UTC()
	cmd := traceCommand(ctx, binary, ip, maxHops)
	output, err := cmd.CombinedOutput()
	finished := time.Now().UTC()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TraceResult{}, ErrToolTimeout
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return TraceResult{}, ErrToolUnavailable
		}
	}

	hops := parseTraceOutput(output)
	return TraceResult{
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: float64(finished.Sub(started).Microseconds()) / 1000.0,
		Hops:       hops,
	}, nil
}

func traceBinary() string {
	if runtime.GOOS == "windows" {
		return "tracert"
	}
	return "traceroute"
}

func traceCommand(ctx context.Context, binary, ip string, maxHops int) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, binary, "-h", strconv.Itoa(maxHops), "-d", ip)
	}
	return exec.CommandContext(ctx, binary, "-m", strconv.Itoa(maxHops), "-q", "1", ip)
}

// parseTraceOutput splits traceroute/tracert output into per-hop records.
// Lines are expected in the form "<n> <host> (<ip>) <rtt> ms" (Linux/macOS)
// or "<n> <rtt> ms <rtt> ms <rtt> ms <ip>" / "... <host> [<ip>]" (Windows
// tracert, with and without -d); either dialect
// degrades gracefully to a timeout hop when the fields can't be parsed.
func parseTraceOutput(output []byte) []Hop {
	var hops []Hop
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		m := hopLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		hopNum, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rest := strings.TrimSpace(m[2])
		hops = append(hops, parseHopFields(hopNum, rest))
	}
	return hops
}

func parseHopFields(hopNum int, rest string) Hop {
	hop := Hop{Hop: hopNum, Raw: rest}

	lower := strings.ToLower(rest)
	if strings.Contains(lower, "* * *") || strings.Count(rest, "*") >= 3 || rest == "" {
		hop.IsTimeout = true
		return hop
	}

	if m := hostIPRegex.FindStringSubmatch(rest); len(m) == 3 {
		host := m[1]
		ip := m[2]
		hop.Host = &host
		hop.IP = &ip
	} else {
		fields := strings.Fields(rest)
		if len(fields) > 0 && bareIPRegex.MatchString(fields[0]) {
			ip := fields[0]
			hop.IP = &ip
		} else if len(fields) > 0 && net.ParseIP(fields[len(fields)-1]) != nil {
			ip := fields[len(fields)-1]
			hop.IP = &ip
		}
	}

	if m := hopRTTRegex.FindStringSubmatch(rest); len(m) > 1 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			hop.RTTMs = &v
		}
	}

	if hop.Host == nil && hop.IP == nil && hop.RTTMs == nil {
		hop.IsTimeout = true
	}
	return hop
}
