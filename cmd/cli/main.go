package main

import (
	"os"

	"github.com/transitdesk/transitdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
