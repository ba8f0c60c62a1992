package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <domain>",
	Short: "Check that a domain is a Mastodon server",
	Long: `Query the server's instance endpoint and print the domain it reports for
itself. Verified domains are remembered and listed by "instances".

Examples:
  feedamalgamator verify mastodon.social
  feedamalgamator verify https://mastodon.social/explore`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.StartOAuth(); err != nil {
		return err
	}

	ok, domain := a.VerifyAndRecord(ctx, args[0])
	if !ok {
		return fmt.Errorf("%s is not a reachable Mastodon server", args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Verified: %s\n", domain)
	return nil
}
