package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize <domain>",
	Short: "Obtain an access token for a Mastodon account",
	Long: `Verify the server, print the URL where the account owner authorizes the
app, then exchange the code they paste back for an access token.

The token is printed, not stored. Pass it to "timeline" with --token or
MASTODON_ACCESS_TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorize,
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
}

func runAuthorize(cmd *cobra.Command, args []string) error {
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

	if err := a.OAuth.StartAppClient(domain); err != nil {
		return describe(err)
	}

	authURL, err := a.OAuth.RedirectURL(ctx, a.Config.APITries)
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open this URL and authorize the app:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the authorization code: ")

	code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && code == "" {
		return fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code given")
	}

	token, err := a.OAuth.ExchangeCode(ctx, code, a.Config.APITries)
	if err != nil {
		return describe(err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Access token for %s:\n%s\n", domain, token)
	return nil
}
