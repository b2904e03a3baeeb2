package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/lyricsify/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := newApp(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrFatalInit):
			runner.Close()
			logger.Fatalf("fatal: %v", err)
		default:
			logger.Error("command failed", "error", err)
			runner.Close()
			os.Exit(1)
		}
	}
}
