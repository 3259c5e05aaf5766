package main

import (
	"os"

	"github.com/vxlab/malsift/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
