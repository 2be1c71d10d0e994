package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/njyeung/threads/fixture"
)

func main() {
	var addr string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Serve an in-memory site with posts and threaded comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

			log.Info().Str("addr", addr).Msg("serving fixture site")
			return http.ListenAndServe(addr, fixture.New(log))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
