// Command ifjc is the IFJ21 compiler front end's executable entry point.
package main

import (
	"fmt"
	"os"

	"github.com/ifj21/ifjc/cmd/ifjc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
