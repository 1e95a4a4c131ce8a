package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/MikhailRaia/bookmark-manager/internal/app"
	"github.com/MikhailRaia/bookmark-manager/internal/config"
	"github.com/MikhailRaia/bookmark-manager/internal/logger"
	"github.com/rs/zerolog/log"
)

var (
	memprofile = flag.String("memprofile", "", "write memory profile to `file`")
	prettyLog  = flag.Bool("pretty", false, "human-readable console logs")
)

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err == nil {
		runtime.GC()
		pprof.WriteHeapProfile(f)
		_ = f.Close()
	}
}

func main() {
	cfg := config.NewConfig()
	logger.InitLogger(cfg.LogLevel, *prettyLog)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	if err := application.Run(ctx); err != nil {
		if *memprofile != "" {
			writeHeapProfile(*memprofile)
		}
		log.Fatal().Err(err).Msg("Error running application")
	}

	if *memprofile != "" {
		writeHeapProfile(*memprofile)
	}
	log.Info().Msg("Stopped")
}
