package main

import (
	"os"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
