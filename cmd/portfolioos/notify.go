package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portfolioos/internal/config"
	"portfolioos/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [message]",
	Short: "Send a test notification",
	Long: `Send a message to TELEGRAM_CHAT_ID using the same client the server uses
for contact submissions. Useful to check the bot token and chat id.`,
	RunE: runNotify,
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if text == "" {
		text = fmt.Sprintf("Test notification from portfolioos %s", version)
	}

	if err := notifier.Send(cmd.Context(), text); err != nil {
		if errors.Is(err, notify.ErrDisabled) {
			return fmt.Errorf("notifications are disabled: set TELEGRAM_TOKEN and TELEGRAM_CHAT_ID")
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Notification sent")
	return nil
}
