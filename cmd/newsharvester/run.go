package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [org-id...]",
	Short: "Discover and process organizations in one pass",
	Long:  `Discover candidate URLs for each organization (all when none are given) and immediately process the resulting batch. Organizations are handled one at a time with a courtesy delay between them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		application, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		reports, err := application.Run(cmd.Context(), args, days)
		printReports(cmd.OutOrStdout(), reports)
		return err
	},
}

func init() {
	runCmd.Flags().Int("days", 0, "lookback window in days (default from config)")
	rootCmd.AddCommand(runCmd)
}
