// Command timelocker is the CLI adapter over the integration facade (C12):
// a thin cobra front end. Most commands go through the facade; some also
// construct config, engine, repository and vault values directly.
package main

import (
	"fmt"
	"os"

	"github.com/auriora/timelocker/cmd/timelocker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "timelocker: %v\n", err)
		os.Exit(1)
	}
}
