// Package app wires configuration, storage, the audit scheduler and the HTTP
// server into one lifecycle.
package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"constantdb/internal/audit"
	"constantdb/pkg/config"
	"constantdb/pkg/logger"
	"constantdb/pkg/storage"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	reg   *storage.Registry
	ready atomic.Bool

	srv serverHandle
}

// New validates the effective config and opens the constant registry. It does
// not start the HTTP server or the audit scheduler; call Run to start those
// and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := eff.Config.Validate(); err != nil {
		return nil, err
	}

	reg, err := storage.OpenRegistry(storage.RegistryConfig{
		DataDir:     eff.DataDir,
		ChunkSize:   eff.Config.Storage.ChunkSize.Int64(),
		VerifyEvery: eff.Config.Storage.VerifyEvery,
		MinFileSize: eff.Config.Storage.MinFileSize.Int64(),
	})
	if err != nil {
		return nil, fmt.Errorf("open registry at %s: %w", eff.DataDir, err)
	}
	if len(reg.Available()) == 0 {
		logger.Warn("no_constants_available", "data_dir", eff.DataDir)
	}

	return &App{eff: eff, version: version, commit: commit, buildDate: buildDate, reg: reg}, nil
}

// Registry exposes the constant registry, used by startup build and tests.
func (a *App) Registry() *storage.Registry { return a.reg }

// Run optionally builds missing caches, starts the audit scheduler and the
// HTTP server, and blocks until ctx is canceled or a fatal server error
// occurs.
func (a *App) Run(ctx context.Context) error {
	if a.eff.Config.Storage.BuildOnStart {
		sum := a.reg.BuildAll(ctx, false, nil)
		if sum.Failed > 0 {
			logger.Warn("startup_build_partial", "failed", sum.Failed, "success", sum.Success, "skipped", sum.Skipped)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	stopAudit, err := audit.Start(ctx, a.eff.Config.Audit, a.reg)
	if err != nil {
		return err
	}
	defer stopAudit()

	a.printBanner()

	errCh := a.startHTTP(ctx)
	a.ready.Store(true)

	select {
	case <-ctx.Done():
		a.ready.Store(false)
		a.stopHTTP()
		return a.reg.Close()
	case err := <-errCh:
		a.ready.Store(false)
		_ = a.reg.Close()
		return err
	}
}
