// Command appointment books doctor appointments with a human confirmation
// step. Threads are checkpointed, so a booking can be started in one
// invocation and resumed in another.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCommand(app).Execute()
	if closeErr := app.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
