package main

import (
	"github.com/fenilsonani/winsweep/internal/api"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP API",
	Long: `Serves targets, sweeps, history, system status and autostart over HTTP.
The API binds to 127.0.0.1 by default and has no authentication.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if listenAddr != "" {
			s.cfg.API.Listen = listenAddr
		}

		store, err := s.openHistory()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		cmd.Printf("Listening on http://%s\n", s.cfg.API.Listen)
		return api.NewServer(s.cfg, store, s.logger).Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "address to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}
