package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for darkthread.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "darkthread",
		Short: "Forum thread intelligence extractor for Tor hidden services",
		Long: `darkthread fetches forum threads through Tor and turns each page into a
structured document: thread metadata, posts, users, links and attachments.
Every post is scanned for PII (e-mail addresses, phone numbers, card
numbers, crypto addresses, ...) and the results are written as JSON and
Markdown reports next to the raw capture.

By default darkthread uses a running Tor proxy on 127.0.0.1:9050 and falls
back to the Tor Browser proxy on 127.0.0.1:9150.
Use --embedded-tor to start a private Tor daemon instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
