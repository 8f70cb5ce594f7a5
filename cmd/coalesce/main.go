package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aryankumar/coalesce/internal/cli"
	"github.com/aryankumar/coalesce/internal/util"
)

func main() {
	// Setup signal handling for graceful shutdown
	ctx, cancel := util.SetupSignalHandler(context.Background(), slog.Default())

	err := cli.Execute(ctx)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, util.ErrResultsFound):
		// Results were already printed
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "Error:", util.FriendlyError(err))
		os.Exit(1)
	}
}
