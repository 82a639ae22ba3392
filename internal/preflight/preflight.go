package preflight

import (
	"context"

	"lectern/internal/config"
	"lectern/internal/kvstore"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// The storage check is skipped when store is nil; the platform check only
// runs when platform fetching is enabled.
func RunAll(ctx context.Context, cfg *config.Config, store kvstore.Store) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckAgentBind(cfg.Agent.Bind, cfg.Agent.Token),
	}

	if store != nil {
		results = append(results, CheckStore(ctx, cfg.Storage.Backend, store))
	}

	if cfg.Platform.Enabled {
		results = append(results, CheckPlatform(ctx, cfg))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
