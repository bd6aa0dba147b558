package cmd

import (
	"context"

	"github.com/AzielCF/az-tweetcast/schedules/application"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or update schedules from a YAML file",
	Args:  cobra.ExactArgs(1),
	Run:   importSchedules,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importSchedules(_ *cobra.Command, args []string) {
	defer StopApp()

	list, err := application.ReadScheduleFile(args[0])
	if err != nil {
		logrus.Fatalf("[IMPORT] %v", err)
	}

	res := scheduleService.Import(context.Background(), list)
	for _, err := range res.Errors {
		logrus.WithError(err).Error("[IMPORT] Rejected")
	}
	logrus.Infof("[IMPORT] %d created, %d updated, %d rejected", res.Created, res.Updated, len(res.Errors))
}
