package main

import (
	"os"

	"github.com/spiffler33/lean-insights/leanservice"
)

func main() {
	if err := leanservice.Run(); err != nil {
		os.Exit(1)
	}
}
