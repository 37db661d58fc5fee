// Package main runs the ledger command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	ledgercmd "github.com/louisbranch/objectledger/internal/cmd/ledger"
	"github.com/louisbranch/objectledger/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ledgercmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		config.Exitf("ledger: %v", err)
	}
}
