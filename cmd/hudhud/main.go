package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hudhud",
		Short: "Ingest, curate, and auto-publish Arabic news from RSS feeds",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(fetchCmd())
	root.AddCommand(scrapeCmd())
	root.AddCommand(automateCmd())
	root.AddCommand(itemsCmd())
	root.AddCommand(cleanupCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func fetchCmd() *cobra.Command {
	var sourceID int64

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch RSS feeds and ingest new items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(sourceID)
		},
	}

	cmd.Flags().Int64Var(&sourceID, "source", 0, "fetch a single source by id (default: all due sources)")
	return cmd
}

func scrapeCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape full article content for pending items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(batch)
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 10, "items to scrape per run")
	return cmd
}

func automateCmd() *cobra.Command {
	var (
		itemID int64
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "automate",
		Short: "Run approved items through the publication pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutomate(itemID, limit)
		},
	}

	cmd.Flags().Int64Var(&itemID, "item", 0, "process a single item by id")
	cmd.Flags().IntVar(&limit, "limit", 10, "max approved items to queue")
	return cmd
}

func itemsCmd() *cobra.Command {
	var (
		jsonOutput bool
		status     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List ingested items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItems(jsonOutput, status, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, approved, rejected, expired)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max items to show")
	return cmd
}

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Expire and delete old ingested items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup()
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
