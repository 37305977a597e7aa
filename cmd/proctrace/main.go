package main

import (
	"fmt"
	"os"

	"github.com/tinyproc/proctrace/cmd/proctrace/cli"
)

func main() {
	err := cli.Execute()
	if code := cli.ExitCode(err); code != 0 {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		os.Exit(code)
	}
}
