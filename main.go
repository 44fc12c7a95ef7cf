package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/h434ni/loggy-run/cmd/cli"
)

// main supervises the command given on the command line and exits with its status.
func main() {
	executionContext, stopNotifications := signal.NotifyContext(context.Background(), os.Interrupt)
	exitStatus := cli.Execute(executionContext, os.Args[1:])
	stopNotifications()
	os.Exit(exitStatus)
}
