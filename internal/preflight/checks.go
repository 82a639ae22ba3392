package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"lectern/internal/config"
	"lectern/internal/kvstore"
	"lectern/internal/platform"
)

const checkTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore pings the transcript store.
func CheckStore(ctx context.Context, backend string, store kvstore.Store) Result {
	name := "Storage"
	if backend != "" {
		name = fmt.Sprintf("Storage (%s)", backend)
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := store.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckPlatform verifies that the course-content API answers.
func CheckPlatform(ctx context.Context, cfg *config.Config) Result {
	const name = "Platform API"

	client, err := platform.NewFromConfig(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid configuration (%v)", err)}
	}
	if client == nil {
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if strings.TrimSpace(cfg.Platform.Cookie) == "" && strings.TrimSpace(cfg.Platform.AccessToken) == "" {
		return Result{Name: name, Passed: true, Detail: "Reachable (no credentials; private courses will fail)"}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckAgentBind validates the bridge listen address. Binding beyond loopback
// requires a token.
func CheckAgentBind(bind, token string) Result {
	const name = "Agent bridge"

	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q (error: %v)", bind, err)}
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return Result{Name: name, Detail: fmt.Sprintf("%q (error: invalid port)", bind)}
	}
	if !isLoopback(host) && strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: non-loopback bind without agent.token)", bind)}
	}
	return Result{Name: name, Passed: true, Detail: bind}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (unreachable)"
	}
	return err.Error()
}
