// Command taskboard is a terminal client for the task-management API. It
// keeps the session in a local credential store and can serve the state
// containers to a UI over a local HTTP API.
//
// Usage:
//
//	TASKBOARD_API_BASE_URL=https://tasks.example.com/api taskboard login --email a@b.com
//	taskboard projects list -o yaml
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	log.Logger = logger

	c := newCLI(logger, os.Stdout)
	if err := c.execute(context.Background(), newRootCmd(c)); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
