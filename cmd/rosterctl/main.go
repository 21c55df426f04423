package main

import (
	"fmt"
	"os"

	"example.com/matchwatch/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rosterctl:", err)
		os.Exit(1)
	}
}
