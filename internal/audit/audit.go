// Package audit runs the scheduled chunk-store integrity sweep. Each run
// recomputes every persisted chunk checksum for every available constant and
// reports damage through logs and metrics without touching the read path.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"constantdb/pkg/config"
	"constantdb/pkg/logger"
	"constantdb/pkg/storage"
	"constantdb/pkg/telemetry"
)

// Start starts the audit scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.AuditConfig, reg *storage.Registry) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("audit_disabled")
		return func() {}, nil
	}

	// map empty cron to default daily @03:00
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 3 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("audit_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid audit cron expression: %s", cfg.Cron)
	}

	logger.Info("audit_enabled", "cron", cronExpr, "constants", len(reg.Available()))
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, reg)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, cronExpr string, reg *storage.Registry) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("audit_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("audit_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("audit_scheduler_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			RunOnce(ctx, reg)
		case <-ctx.Done():
			logger.Info("audit_scheduler_stopping")
			return
		}
	}
}

// RunOnce sweeps every available constant's chunk store. A corrupt chunk is
// logged per-chunk; the sweep always visits every constant.
func RunOnce(ctx context.Context, reg *storage.Registry) {
	started := time.Now()
	for _, id := range reg.Available() {
		if ctx.Err() != nil {
			return
		}
		m, err := reg.Manager(id)
		if err != nil {
			continue
		}
		results, err := m.VerifyAllChunks()
		if err != nil {
			logger.Error("audit_scan_failed", "constant", id, "error", err)
			telemetry.AuditRuns.WithLabelValues(id, "error").Inc()
			continue
		}
		corrupt := 0
		for _, v := range results {
			if !v.OK {
				corrupt++
				logger.Error("audit_corrupt_chunk", "constant", id, "chunk", v.ID, "start", v.Start, "end", v.End, "detail", v.Error)
				telemetry.CorruptionDetected.WithLabelValues(id, "chunks").Inc()
			}
		}
		outcome := "ok"
		if corrupt > 0 {
			outcome = "corrupt"
		}
		telemetry.AuditRuns.WithLabelValues(id, outcome).Inc()
		logger.Info("audit_constant_complete", "constant", id, "chunks", len(results), "corrupt", corrupt)
	}
	logger.Info("audit_run_complete", "elapsed", time.Since(started).String())
}
