// Command driftink runs a real-time incompressible fluid toy. Pointer
// strokes splat dye and momentum into a small grid, a Jacobi pressure
// solve keeps the velocity field divergence free, and the dye rides the
// flow at a higher resolution.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"driftink/config"
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run wraps the real entry point so deferred cleanups fire before the
// process exits.
func run(logger *slog.Logger) error {
	if err := config.Init(*configFlag); err != nil {
		return err
	}
	cfg := config.Cfg()

	if *cpuProfileFlag != "" {
		stop, err := startCPUProfile(*cpuProfileFlag)
		if err != nil {
			return err
		}
		defer stop()
	}

	game, err := newGame(cfg, logger)
	if err != nil {
		return err
	}
	defer game.Close()

	if *headlessFlag {
		return runHeadless(cfg, logger, game.sim, game.perf, game.output, *maxTicksFlag)
	}

	ebiten.SetWindowSize(cfg.Display.Width, cfg.Display.Height)
	ebiten.SetWindowTitle("driftink")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if cfg.Display.TargetFPS > 0 {
		ebiten.SetTPS(cfg.Display.TargetFPS)
	}
	return ebiten.RunGame(game)
}
