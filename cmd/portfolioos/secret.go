package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"portfolioos/internal/security"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a webhook secret token",
	Long: `Generate a random value for TELEGRAM_WEBHOOK_SECRET. Pass the same value as
secret_token when registering the webhook with Telegram's setWebhook.`,
	Args: cobra.NoArgs,
	RunE: runSecret,
}

func runSecret(cmd *cobra.Command, args []string) error {
	secret, err := security.GenerateSecret()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), secret)
	return nil
}
