package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"roadlens/internal/api"
	"roadlens/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// Exit codes. exitPartial means some photos were stored or removed before
// the command failed, so a retry must not assume nothing happened.
const (
	exitOK      = 0
	exitFailed  = 1
	exitPartial = 3
)

func main() {
	os.Exit(run(os.Stderr))
}

func run(stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	if cfg.TrustedProjectConfigPath != "" {
		fmt.Fprintf(stderr, "warning: using trusted project config from %s\n", cfg.TrustedProjectConfigPath)
	}

	// Ctrl-C cancels an upload in flight; the server reports the file as aborted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		for _, line := range formatCLIError(err) {
			fmt.Fprintln(stderr, line)
		}
		return exitCodeFor(err)
	}
	return exitOK
}

func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return exitFailed
	}
	if apiErr.Code == "partial_purge" {
		return exitPartial
	}
	if apiErr.Batch != nil && len(apiErr.Batch.Completed) > 0 {
		return exitPartial
	}
	return exitFailed
}
