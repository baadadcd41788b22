// Package main starts the authoritative combat server.
//
// The process owns the combat store; participants reach it through the
// websocket relay.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	combatcmd "github.com/louisbranch/shadowtrack/internal/cmd/combat"
	entrypoint "github.com/louisbranch/shadowtrack/internal/platform/cmd"
)

func main() {
	cfg, err := combatcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceCombat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := combatcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
