package main

import (
	"context"
	"os"

	"github.com/saythanks/saythanks/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.OpenApp).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
