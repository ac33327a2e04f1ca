package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/qualifire-dev/rogue/types"
)

const defaultDialTimeout = 5 * time.Second

// NetworkCheck verifies TCP connectivity to a host and port. A nil context
// gets a default 5-second timeout.
func NetworkCheck(ctx context.Context, host string, port int) types.HealthStatus {
	if host == "" {
		return types.NewUnhealthyStatus("host cannot be empty", nil)
	}
	if port <= 0 || port > 65535 {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("invalid port %d", port),
			map[string]any{"host": host, "port": port},
		)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), defaultDialTimeout)
		defer cancel()
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("cannot connect to %s", addr),
			map[string]any{"address": addr, "error": err.Error()},
		)
	}
	conn.Close()

	return types.NewHealthyStatus(fmt.Sprintf("connected to %s", addr))
}

// EndpointCheck verifies TCP reachability of an HTTP(S) endpoint URL, such
// as the evaluated agent or the judge LLM API base.
func EndpointCheck(ctx context.Context, rawURL string) types.HealthStatus {
	if rawURL == "" {
		return types.NewUnhealthyStatus("endpoint URL cannot be empty", nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("invalid endpoint URL %q", rawURL),
			map[string]any{"url": rawURL},
		)
	}

	port := 0
	if p := u.Port(); p != "" {
		fmt.Sscanf(p, "%d", &port)
	} else {
		switch u.Scheme {
		case "https":
			port = 443
		case "http", "":
			port = 80
		default:
			return types.NewUnhealthyStatus(
				fmt.Sprintf("unsupported scheme %q", u.Scheme),
				map[string]any{"url": rawURL},
			)
		}
	}

	status := NetworkCheck(ctx, u.Hostname(), port)
	if status.Details == nil {
		status.Details = map[string]any{}
	}
	status.Details["url"] = rawURL
	return status
}

// FileCheck verifies that a path exists and is a regular file, e.g. the
// configured Python entrypoint.
func FileCheck(path string) types.HealthStatus {
	if path == "" {
		return types.NewUnhealthyStatus("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("file %q not found", path),
			map[string]any{"path": path, "error": err.Error()},
		)
	}
	if info.IsDir() {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("%q is a directory, not a file", path),
			map[string]any{"path": path},
		)
	}

	return types.NewHealthyStatus(fmt.Sprintf("file %q exists", path))
}

// Combine aggregates health checks: any unhealthy makes the result
// unhealthy, otherwise any degraded makes it degraded, otherwise healthy.
// Individual messages are collected into the details.
func Combine(statuses ...types.HealthStatus) types.HealthStatus {
	if len(statuses) == 0 {
		return types.NewHealthyStatus("no checks configured")
	}

	var unhealthy, degraded []string
	details := map[string]any{"checks": len(statuses)}
	for _, s := range statuses {
		switch {
		case s.IsUnhealthy():
			unhealthy = append(unhealthy, s.Message)
		case s.IsDegraded():
			degraded = append(degraded, s.Message)
		}
	}

	switch {
	case len(unhealthy) > 0:
		details["failures"] = unhealthy
		return types.NewUnhealthyStatus(
			fmt.Sprintf("%d of %d checks unhealthy", len(unhealthy), len(statuses)), details)
	case len(degraded) > 0:
		details["degraded"] = degraded
		return types.NewDegradedStatus(
			fmt.Sprintf("%d of %d checks degraded", len(degraded), len(statuses)), details)
	default:
		return types.NewHealthyStatus(fmt.Sprintf("all %d checks healthy", len(statuses)))
	}
}
