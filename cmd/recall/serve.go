package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/recall-go/server"
)

var flagServeStore string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a memory store over WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		retriever, client, err := openStore(ctx, flagServeStore)
		if err != nil {
			return err
		}
		defer retriever.Close()

		gen, err := newGenerator(client)
		if err != nil {
			return err
		}

		srv := server.New(retriever, gen, server.Config{
			ListenAddr: cfg.ListenAddr,
			Model:      cfg.Model,
			AskTopK:    cfg.AskTopK,
		}, log)

		fmt.Printf("Serving store %q on %s (/ws, /health)\n", flagServeStore, cfg.ListenAddr)
		return srv.Run()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flagServeStore, "store", "s", sampleStoreName, "memory store name")
}
