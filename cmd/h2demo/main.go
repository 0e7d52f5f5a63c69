package main

import (
	"fmt"
	"os"

	"github.com/catatsuy/h2/cmd/h2demo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
