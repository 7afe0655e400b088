package main

import (
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [org-id...]",
	Short: "Find candidate article URLs and create ready batches",
	Long:  `Run every applicable discovery source for the given organizations (all when none are given) and store one ready_for_processing batch each.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		application, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		results, err := application.Discover(cmd.Context(), args, days)
		printDiscovery(cmd.OutOrStdout(), results)
		return err
	},
}

func init() {
	discoverCmd.Flags().Int("days", 0, "lookback window in days (default from config)")
	rootCmd.AddCommand(discoverCmd)
}
