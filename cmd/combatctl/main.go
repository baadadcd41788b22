// Package main is a command-line participant for the combat server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/shadowtrack/internal/cmd/combatctl"
	entrypoint "github.com/louisbranch/shadowtrack/internal/platform/cmd"
	"github.com/louisbranch/shadowtrack/internal/platform/config"
)

func main() {
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceCtl))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := combatctl.Run(ctx, os.Args[1:], os.Stdout); err != nil {
		config.Exitf("combatctl: %v", err)
	}
}
