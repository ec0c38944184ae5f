package main

import (
	"os"

	"github.com/hirosato/account-statements/backend/cmd/statement/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
