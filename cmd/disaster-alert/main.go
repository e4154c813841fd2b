package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "disaster-alert",
	Short: "Disaster report backend",
	Long: `Backend for user-submitted disaster reports: submission, a filterable
feed, and admin moderation of alerts and accounts.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
