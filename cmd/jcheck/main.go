package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/jyasuu/jcheck/internal/cli"
	"github.com/jyasuu/jcheck/pkg/version"
)

func main() {
	err := fang.Execute(context.Background(), cli.NewRootCmd(),
		fang.WithVersion(version.GetVersion()),
		fang.WithErrorHandler(cli.ErrorHandler),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		os.Exit(1)
	}
}
