// The main package for the gradesync executable.
package main

import (
	"os"

	"github.com/banktcg/gradesync/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
