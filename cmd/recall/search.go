package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagSearchStore string

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Run a one-shot search against a memory store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		retriever, _, err := openStore(ctx, flagSearchStore)
		if err != nil {
			return err
		}
		defer retriever.Close()

		results, err := retriever.Search(ctx, query, cfg.SearchTopK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		fmt.Printf("Searching for: %q\n", query)
		printResults(results)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&flagSearchStore, "store", "s", sampleStoreName, "memory store name")
}
