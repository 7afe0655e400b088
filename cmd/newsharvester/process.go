package main

import (
	"github.com/spf13/cobra"

	"NewsHarvester/internal/usecase"
)

var processCmd = &cobra.Command{
	Use:   "process <batch-id>",
	Short: "Extract, validate and store the URLs of a ready batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		report, err := application.ProcessBatch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printReports(cmd.OutOrStdout(), []usecase.BatchReport{report})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
