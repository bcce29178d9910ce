// keyctl manages dandi API keys from the terminal. It drives the same key
// controller as the dashboard, directly against the configured store.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := newRootCmd(nil, nil).Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}
