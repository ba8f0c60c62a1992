package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/abdulachik/feedamalgamator/internal/fediverse"
	"github.com/abdulachik/feedamalgamator/internal/render"
	"github.com/spf13/cobra"
)

var (
	timelineToken     string
	timelineName      string
	timelineLimit     int
	timelineMaxLength int
	timelineJSON      bool
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <domain>",
	Short: "Print a timeline for an authorized account",
	Long: `Start a session with the account's access token and print a timeline.

Timelines: home, public, local, tag/<hashtag>, list/<id>.

Examples:
  feedamalgamator timeline mastodon.social -t TOKEN
  feedamalgamator timeline mastodon.social --name tag/golang --limit 5
  feedamalgamator timeline mastodon.social --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTimeline,
}

func init() {
	timelineCmd.Flags().StringVarP(&timelineToken, "token", "t", "", "User access token (default $MASTODON_ACCESS_TOKEN)")
	timelineCmd.Flags().StringVar(&timelineName, "name", "home", "Timeline to read")
	timelineCmd.Flags().IntVar(&timelineLimit, "limit", 20, "Maximum number of posts")
	timelineCmd.Flags().IntVar(&timelineMaxLength, "max-length", render.DefaultMaxLength, "Truncate post text to this many characters")
	timelineCmd.Flags().BoolVar(&timelineJSON, "json", false, "Print normalized entries as JSON")
	rootCmd.AddCommand(timelineCmd)
}

func runTimeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	token := timelineToken
	if token == "" {
		token = os.Getenv("MASTODON_ACCESS_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("an access token is required (--token or MASTODON_ACCESS_TOKEN)")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	domain := fediverse.CleanDomain(args[0])
	if err := a.Data.StartUserClient(ctx, domain, token); err != nil {
		return describe(err)
	}

	entries, err := a.Data.Timeline(ctx, timelineName, timelineLimit, a.Config.APITries)
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	if timelineJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No posts.")
		return nil
	}

	for i, entry := range entries {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, render.FormatEntry(entry, timelineMaxLength))
	}
	return nil
}
