package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	Run: func(_ *cobra.Command, _ []string) {
		defer StopApp()
		if err := initSchema(context.Background()); err != nil {
			logrus.Fatalf("[MIGRATION] Failed: %v", err)
		}
		logrus.Info("[MIGRATION] Schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
