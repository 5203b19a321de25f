// Command alphabeta-server runs the alpha-beta drift dashboard API.
package main

import (
	"fmt"
	"os"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
