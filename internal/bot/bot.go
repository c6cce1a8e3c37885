// Package bot answers admin commands sent to the Telegram bot.
//
// Updates arrive on the webhook. Only senders listed as admins get a reply;
// everyone else is ignored without an error so Telegram does not redeliver.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"portfolioos/internal/catalog"
	"portfolioos/internal/history"
	"portfolioos/internal/metrics"
	"portfolioos/internal/notify"
	"portfolioos/pkg/cmdutil"
)

const (
	defaultDeliveries = 5
	maxDeliveries     = 20
)

// Config holds the bot's collaborators.
type Config struct {
	Notifier notify.Notifier
	Catalog  *catalog.Registry
	Metrics  *metrics.Registry
	Ledger   *history.History
	AdminIDs []string
	Logger   *slog.Logger

	// Secrets are scrubbed from any error text echoed back to a chat.
	Secrets []string
}

// Bot routes commands to handlers.
type Bot struct {
	notifier notify.Notifier
	catalog  *catalog.Registry
	metrics  *metrics.Registry
	ledger   *history.History
	admins   map[string]bool
	logger   *slog.Logger
	secrets  []string
	now      func() time.Time
	commands map[string]command
}

type command struct {
	usage   string
	summary string
	run     func(b *Bot, args []string) string
}

// New creates a bot.
func New(cfg Config) *Bot {
	b := &Bot{
		notifier: cfg.Notifier,
		catalog:  cfg.Catalog,
		metrics:  cfg.Metrics,
		ledger:   cfg.Ledger,
		admins:   make(map[string]bool, len(cfg.AdminIDs)),
		logger:   cfg.Logger,
		secrets:  cfg.Secrets,
		now:      time.Now,
	}
	if b.notifier == nil {
		b.notifier = notify.Disabled{}
	}
	if b.catalog == nil {
		b.catalog = catalog.Default()
	}
	if b.ledger == nil {
		b.ledger = history.NewHistory(0)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	for _, id := range cfg.AdminIDs {
		if id = strings.TrimSpace(id); id != "" {
			b.admins[id] = true
		}
	}

	b.commands = map[string]command{
		"/start":      {"/start", "show this help", (*Bot).help},
		"/help":       {"/help", "show this help", (*Bot).help},
		"/projects":   {"/projects [category]", "list portfolio projects", (*Bot).projects},
		"/status":     {"/status", "uptime and last delivery", (*Bot).status},
		"/metrics":    {"/metrics", "request counters", (*Bot).metricsReport},
		"/deliveries": {"/deliveries [n]", "recent contact deliveries", (*Bot).deliveries},
	}
	return b
}

// IsAdmin reports whether a Telegram user id may issue commands.
func (b *Bot) IsAdmin(userID string) bool {
	return b.admins[userID]
}

// Handle processes an update and sends the reply, if any, to the chat it
// came from. Updates that are not admin commands are ignored.
func (b *Bot) Handle(ctx context.Context, u Update) error {
	reply, ok := b.Reply(u)
	if !ok {
		return nil
	}

	chatID := u.Message.Chat.idString()
	if err := b.notifier.SendTo(ctx, chatID, reply); err != nil {
		return fmt.Errorf("bot reply to chat %s: %w", chatID, err)
	}
	return nil
}

// Reply computes the answer to an update without sending it. ok is false
// when the update must be ignored.
func (b *Bot) Reply(u Update) (reply string, ok bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return "", false
	}

	if !b.IsAdmin(msg.From.idString()) {
		b.logger.Debug("bot.ignored", "updateId", u.UpdateID, "from", msg.From.ID)
		return "", false
	}

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	parts, err := cmdutil.ParseCommandString(text)
	if err != nil {
		return "Could not parse command: " + cmdutil.Redact(err.Error(), b.secrets), true
	}

	// "/status@my_bot" in group chats
	name, _, _ := strings.Cut(strings.ToLower(parts[0]), "@")

	cmd, found := b.commands[name]
	if !found {
		return fmt.Sprintf("Unknown command: %s\nSend /help for the list of commands.", cmdutil.FormatCommand(parts[:1])), true
	}

	b.logger.Info("bot.command", "updateId", u.UpdateID, "command", name, "from", msg.From.ID)
	return cmd.run(b, parts[1:]), true
}

func (b *Bot) help(_ []string) string {
	names := make([]string, 0, len(b.commands))
	for name := range b.commands {
		if name != "/start" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Portfolio OS bot commands:\n")
	for _, name := range names {
		cmd := b.commands[name]
		fmt.Fprintf(&sb, "%s - %s\n", cmd.usage, cmd.summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) projects(args []string) string {
	category := strings.Join(args, " ")
	list := b.catalog.Filter(category)

	if len(list) == 0 {
		return fmt.Sprintf("No projects in category %q.\nCategories: %s",
			category, strings.Join(b.catalog.Categories(), ", "))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Projects (%d):\n", len(list))
	for _, p := range list {
		fmt.Fprintf(&sb, "• %s [%s]", p.Title, p.Category)
		if p.Impact != "" {
			fmt.Fprintf(&sb, " - %s", p.Impact)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) status(_ []string) string {
	var sb strings.Builder

	if b.metrics != nil {
		uptime := time.Duration(b.metrics.Uptime(b.now())) * time.Second
		fmt.Fprintf(&sb, "Uptime: %s\n", uptime)
	}
	fmt.Fprintf(&sb, "Projects: %d\n", b.catalog.Count())
	fmt.Fprintf(&sb, "Notifications: %s\n", enabledWord(b.notifier.Enabled()))

	if latest, ok := b.ledger.Latest(); ok {
		fmt.Fprintf(&sb, "Last delivery: %s", b.formatRecord(latest))
	} else {
		sb.WriteString("Last delivery: none")
	}
	return sb.String()
}

func (b *Bot) metricsReport(_ []string) string {
	if b.metrics == nil {
		return "Metrics unavailable."
	}
	snap := b.metrics.Snapshot()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Requests: %d\n", snap.RequestsTotal)
	fmt.Fprintf(&sb, "Errors: %d\n", snap.ErrorsTotal)
	fmt.Fprintf(&sb, "Rate limited: %d\n", snap.RateLimitedTotal)
	fmt.Fprintf(&sb, "Contact: %d received, %d delivered, %d skipped, %d failed",
		snap.ContactMessages, snap.ContactDelivered, snap.ContactSkipped, snap.ContactDeliveryFailures)

	routes := make([]string, 0, len(snap.RequestsByRoute))
	for route := range snap.RequestsByRoute {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	for _, route := range routes {
		fmt.Fprintf(&sb, "\n  %s: %d", route, snap.RequestsByRoute[route])
	}
	return sb.String()
}

func (b *Bot) deliveries(args []string) string {
	n := defaultDeliveries
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return "Usage: /deliveries [n]"
		}
		n = min(parsed, maxDeliveries)
	}

	records := b.ledger.Recent(n)
	if len(records) == 0 {
		return "No deliveries recorded."
	}

	var sb strings.Builder
	counts := b.ledger.Counts()
	fmt.Fprintf(&sb, "Last %d deliveries (%d delivered, %d skipped, %d failed retained):\n",
		len(records), counts.Delivered, counts.Skipped, counts.Failed)
	for _, r := range records {
		sb.WriteString(b.formatRecord(r))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) formatRecord(r history.DeliveryRecord) string {
	s := fmt.Sprintf("#%d %s at %s (%dms) req %s",
		r.ID, r.Status, r.StartedAt.UTC().Format(time.RFC3339), r.DurationMillis(), r.RequestID)
	if r.Error != "" {
		s += ": " + cmdutil.Redact(r.Error, b.secrets)
	}
	return s
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
