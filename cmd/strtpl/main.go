// Command strtpl compiles, renders and inspects string templates.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/strtpl/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
