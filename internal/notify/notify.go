// Package notify delivers short text messages to the site owner through the
// Telegram Bot API.
package notify

import (
	"context"
	"errors"
)

// ErrDisabled is returned by senders that have no credentials configured.
var ErrDisabled = errors.New("notifications disabled")

// Notifier sends text messages to a chat.
type Notifier interface {
	// Enabled reports whether Send can deliver to the default chat.
	Enabled() bool
	// Send delivers text to the default chat.
	Send(ctx context.Context, text string) error
	// SendTo delivers text to an explicit chat, such as the sender of a bot
	// command.
	SendTo(ctx context.Context, chatID, text string) error
}

// Disabled is a Notifier that never sends anything.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Send(context.Context, string) error { return ErrDisabled }

func (Disabled) SendTo(context.Context, string, string) error { return ErrDisabled }
