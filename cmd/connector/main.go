package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdpower/connector-go/internal/commands"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := commands.NewRootCommand(version)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		commands.PrintError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
