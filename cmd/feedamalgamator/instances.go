package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List verified Mastodon servers",
	Long:  `List every server domain that passed "verify" or "authorize", most recent first.`,
	RunE:  runInstances,
}

func init() {
	rootCmd.AddCommand(instancesCmd)
}

func runInstances(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	instances, err := a.Store.ListInstances(ctx)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(instances) == 0 {
		fmt.Fprintln(out, "No verified instances.")
		return nil
	}

	fmt.Fprintf(out, "%-40s %-20s %s\n", "DOMAIN", "LAST VERIFIED", "TIMES")
	for _, inst := range instances {
		fmt.Fprintf(out, "%-40s %-20s %d\n",
			inst.Domain,
			inst.LastVerifiedAt.Local().Format(time.DateTime),
			inst.VerifyCount,
		)
	}
	return nil
}
