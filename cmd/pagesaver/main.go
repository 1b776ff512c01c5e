package main

import (
	"fmt"
	"os"

	"github.com/edgecomet/pagesaver/internal/cliapp"
)

func main() {
	if err := cliapp.NewApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pagesaver:", err)
		os.Exit(1)
	}
}
