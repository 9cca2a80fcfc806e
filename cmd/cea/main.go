package main

import (
	"fmt"
	"os"

	"github.com/tillberg/autorestart"

	"github.com/act-dev-25/agents/internal/cli"
)

func main() {
	if os.Getenv("CEA_AUTORESTART") == "1" {
		autorestart.RestartOnChange()
	}
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
