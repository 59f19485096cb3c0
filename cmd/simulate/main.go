// Package main runs a virtual-player game simulation.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	simulatecmd "github.com/n1ck8131/tg-bot/internal/cmd/simulate"
	"github.com/n1ck8131/tg-bot/internal/platform/config"
)

func main() {
	cfg, err := simulatecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[SIMULATE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simulatecmd.Run(ctx, cfg); err != nil {
		config.Exitf("run simulation: %v", err)
	}
}
