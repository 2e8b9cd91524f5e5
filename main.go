package main

import (
	"os"

	"github.com/rvigier/loadshift/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
