package logic

import (
	"context"

	"go.uber.org/zap"
)

// StepResult records the outcome of a non-critical step.
// A degraded step was attempted and failed; ingestion continued without it.
type StepResult struct {
	Step     string
	Degraded bool
	Err      error
}

// Non-critical ingest steps
const (
	StepProfileEnrichment = "profile_enrichment"
	StepMatchLock         = "match_lock"
	StepReplayUpload      = "replay_upload"
	StepRankRefresh       = "rank_refresh"
	StepLadderInvalidate  = "ladder_invalidate"
)

// runNonCritical runs fn, logging and counting a failure instead of returning it.
func runNonCritical(ctx context.Context, logger *zap.SugaredLogger, step string, fn func(ctx context.Context) error) StepResult {
	if err := fn(ctx); err != nil {
		logger.Warnw("Non-critical step failed", "step", step, "error", err)
		degradedSteps.WithLabelValues(step).Inc()
		return StepResult{Step: step, Degraded: true, Err: err}
	}
	return StepResult{Step: step}
}

// DegradedSteps lists the names of the failed steps in order.
func DegradedSteps(results []StepResult) []string {
	var out []string
	for _, r := range results {
		if r.Degraded {
			out = append(out, r.Step)
		}
	}
	return out
}
