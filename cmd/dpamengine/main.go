package main

import (
	"os"

	"github.com/rschaeff/dpamengine/cmd/dpamengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
