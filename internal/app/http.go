package app

import (
	"context"
	"net/http"
	"time"

	"constantdb/pkg/api"
	"constantdb/pkg/banner"
	"constantdb/pkg/logger"
)

type serverHandle struct {
	http *http.Server
}

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	cached := 0
	for _, id := range a.reg.Available() {
		if m, err := a.reg.Manager(id); err == nil && m.HasChunkCache() {
			cached++
		}
	}
	banner.PrintWithEff(a.eff, verStr, len(a.reg.Available()), cached)
}

// startHTTP builds the handler, starts the HTTP server in a goroutine and
// returns a channel that will contain any server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	handler := api.NewRouter(a.reg, api.RateLimitConfig{
		RPS:   a.eff.Config.Security.RateLimit.RPS,
		Burst: a.eff.Config.Security.RateLimit.Burst,
	}, a.ready.Load)

	a.srv.http = &http.Server{Addr: a.eff.Addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		cert := a.eff.Config.Server.TLS.CertFile
		key := a.eff.Config.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.http.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.http.ListenAndServe()
		}
	}()
	return errCh
}

// stopHTTP drains in-flight requests with a short deadline.
func (a *App) stopHTTP() {
	if a.srv.http == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.http.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_error", "error", err)
	}
}
