package main

import (
	"fmt"
	"os"

	"github.com/sokinpui/unconsole"
)

func main() {
	if err := unconsole.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(unconsole.ExitCode(err))
	}
}
