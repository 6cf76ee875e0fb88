package main

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/krakend/rag-preprocessor/internal/search"
)

var (
	searchTicker string
	searchMax    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the chunk index and print matching records as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchTicker, "ticker", "", "Only return chunks mentioning this ticker")
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", search.DefaultMaxResults, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	_, cleanup, e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	index, err := search.Open(e.cfg.IndexDir)
	if err != nil {
		return err
	}
	defer index.Close()

	result, err := search.Query(index, search.Request{
		Text:   strings.Join(args, " "),
		Ticker: searchTicker,
		Max:    searchMax,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
