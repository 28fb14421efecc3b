// Package notify handles telling the operator about lifecycle events:
// startup, shutdown and fatal failures. Optional — the bot runs fine with
// the Nop notifier.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// Level describes the urgency of an event.
type Level string

const (
	LevelInfo     Level = "info"
	LevelCritical Level = "critical"
)

// Event represents a notification to the operator.
type Event struct {
	Level   Level
	Title   string
	Message string
}

// Notifier sends operator notifications.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop is a Notifier that does nothing.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// SlackAPI is the subset of the Slack client used here, abstracted for
// testing.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts events to a Slack channel.
type SlackNotifier struct {
	api     SlackAPI
	channel string
	logger  zerolog.Logger
}

// NewSlackNotifier creates a notifier posting to the given channel.
func NewSlackNotifier(token, channel string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(token),
		channel: channel,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// SetAPI sets a custom Slack API client (for testing).
func (n *SlackNotifier) SetAPI(api SlackAPI) {
	n.api = api
}

// Notify posts the event. Bounded so a slow Slack API cannot wedge
// shutdown paths.
func (n *SlackNotifier) Notify(ctx context.Context, e Event) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	text := fmt.Sprintf("*[%s] %s*\n%s", e.Level, e.Title, e.Message)
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}

	n.logger.Info().
		Str("level", string(e.Level)).
		Str("title", e.Title).
		Str("channel", n.channel).
		Msg("operator notified")
	return nil
}
