package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/patrimoine/pkg/catalogue"
)

func newCheckCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the catalogue API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("api-url") {
				cfg.APIURL = apiURL
			}
			client := catalogue.NewClient(catalogue.DefaultConfig().WithBaseURL(cfg.APIURL).WithTimeout(cfg.APITimeout), logger)

			start := time.Now()
			h, err := client.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("catalogue API %s: %w", cfg.APIURL, err)
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalogue API: %s\n", cfg.APIURL)
			fmt.Fprintf(out, "  Status:  %s\n", h.Status)
			if h.Version != "" {
				fmt.Fprintf(out, "  Version: %s\n", h.Version)
			}
			fmt.Fprintf(out, "  Latency: %s (checked %s)\n", elapsed.Round(time.Millisecond), humanize.Time(start))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Root URL of the catalogue API (default from config)")
	return cmd
}
