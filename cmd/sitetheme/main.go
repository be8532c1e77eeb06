// Package main provides the sitetheme CLI tool.
//
// Usage:
//
//	sitetheme <command> [arguments]
//
// Commands:
//
//	get      Print the configuration value at a dotted path
//	css      Print the custom properties of the current theme
//	push     Persist a configuration file as the current theme
//	watch    Follow theme changes
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yacchi/sitetheme/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
