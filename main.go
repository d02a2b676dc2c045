package main

import (
	"fmt"
	"os"

	"go-recplay/cli"
)

func main() {
	deps := &cli.Dependencies{}
	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
