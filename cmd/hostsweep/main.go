package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/internal/runner"
)

func main() {
	options := runner.ParseOptions()
	sweepRunner, err := runner.NewRunner(options)
	if err != nil {
		gologger.Fatal().Msgf("Could not create runner: %s\n", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup close handler
	go func() {
		<-c
		gologger.Info().Msgf("CTRL+C pressed: Exiting\n")
		cancel()
	}()

	err = sweepRunner.Run(ctx)
	sweepRunner.Close()
	if err != nil {
		gologger.Fatal().Msgf("Could not run hostsweep: %s\n", err)
	}
}
