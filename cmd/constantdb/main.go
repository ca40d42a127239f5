package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"constantdb/internal/app"
	"constantdb/pkg/config"
	"constantdb/pkg/logger"
	"constantdb/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")

	flags := config.ParseConfigFlags()
	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	envCfg, envUsed := config.ParseConfigEnvs()
	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envUsed)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger.InitWithLevel(eff.Config.Logging.Level)

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err)
	}
	logger.Info("shutdown_complete")
}
