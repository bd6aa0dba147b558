package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute <schedule-id>",
	Short: "Run one schedule immediately and print the result",
	Args:  cobra.ExactArgs(1),
	Run:   executeSchedule,
}

func init() {
	rootCmd.AddCommand(executeCmd)
}

func executeSchedule(_ *cobra.Command, args []string) {
	defer StopApp()

	res, err := executor.ExecuteNow(context.Background(), args[0])
	if err != nil {
		logrus.Fatalf("[EXECUTOR] %v", err)
	}

	fmt.Printf("success=%t sent=%d available=%d execution=%s\n%s\n",
		res.Success, res.SentCount, res.TotalAvailable, res.ExecutionID, res.Message)
}
