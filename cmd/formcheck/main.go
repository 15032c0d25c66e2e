package main

import (
	"os"

	"formcheck/cmd/formcheck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
