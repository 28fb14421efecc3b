// Package responder watches one conversation thread and auto-replies to new
// messages from the designated counterpart.
//
// The loop is a small state machine: no target -> no thread -> polling. A
// missing target is fatal; a missing thread is not — the thread may not
// exist until the counterpart sends a first message, so resolution is
// retried every cycle. All platform calls block the single polling
// goroutine, so no state here needs locking.
package responder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/rfenton/dmreply/internal/errors"
	"github.com/rfenton/dmreply/internal/metrics"
	"github.com/rfenton/dmreply/internal/platform"
	"github.com/rfenton/dmreply/internal/seen"
)

const (
	// DefaultThreadScanLimit bounds the linear scan for the target's
	// thread. A linear rescan is acceptable at this scale; it is a design
	// limit, not an accident.
	DefaultThreadScanLimit = 100

	// DefaultSeenCapacity bounds the seen-set. Oldest-inserted IDs are
	// dropped first when exceeded.
	DefaultSeenCapacity = 100
)

// Config holds responder behavior.
type Config struct {
	TargetUsername  string
	ResponseMessage string
	Interval        time.Duration
	ThreadScanLimit int
	SeenCapacity    int
}

// Bot drives the poll loop. Construct with New, then call Run once.
type Bot struct {
	client  platform.Client
	cfg     Config
	metrics *metrics.Metrics
	logger  zerolog.Logger

	selfID   string
	targetID string
	threadID string
	seenSet  *seen.Set[string]

	now func() time.Time // injectable clock
}

// New creates a Bot. The client must already hold an established session.
func New(client platform.Client, cfg Config, m *metrics.Metrics, logger zerolog.Logger) *Bot {
	if cfg.ThreadScanLimit <= 0 {
		cfg.ThreadScanLimit = DefaultThreadScanLimit
	}
	if cfg.SeenCapacity <= 0 {
		cfg.SeenCapacity = DefaultSeenCapacity
	}
	return &Bot{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "responder").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run resolves the target user and then polls until ctx is cancelled.
// It returns an error only for unrecoverable startup failures (no session,
// target user not found); everything after that is recovered per cycle.
func (b *Bot) Run(ctx context.Context) error {
	b.selfID = b.client.SelfID()
	if b.selfID == "" {
		return perrors.ErrNoSession
	}

	if err := b.resolveTarget(ctx); err != nil {
		return err
	}

	if !b.resolveThread(ctx) {
		b.logger.Warn().Msg("no existing conversation found, will watch for the first message")
	}

	b.logger.Info().
		Str("target", b.cfg.TargetUsername).
		Str("response", b.cfg.ResponseMessage).
		Dur("interval", b.cfg.Interval).
		Msg("bot is now running")

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	// First poll happens immediately; the ticker paces the rest.
	if b.threadID != "" {
		b.cycle(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("bot stopped")
			return nil
		case <-ticker.C:
			b.cycle(ctx)
		}
	}
}

// cycle is one poll iteration. Errors are logged and the cycle skipped; the
// loop never stops for them.
func (b *Bot) cycle(ctx context.Context) {
	b.metrics.RecordPollCycle()

	if b.threadID == "" && !b.resolveThread(ctx) {
		return
	}

	if err := b.pollOnce(ctx); err != nil {
		b.logger.Error().Err(err).Msg("error checking messages")
		b.metrics.RecordPollError("poll")
	}
}

// resolveTarget looks up the counterpart's user ID. One lookup, fatal on
// failure.
func (b *Bot) resolveTarget(ctx context.Context) error {
	id, err := b.client.UserIDByUsername(ctx, b.cfg.TargetUsername)
	if err != nil {
		return fmt.Errorf("resolving target user %q: %w", b.cfg.TargetUsername, err)
	}
	b.targetID = id
	b.logger.Info().Str("target_id", id).Str("target", b.cfg.TargetUsername).Msg("target user resolved")
	return nil
}

// resolveThread scans recent threads for one containing the target user.
// On a match it seeds a fresh seen-set with every existing message ID so
// the bot never replies to history on (re)start. Returns false if no
// thread exists yet or resolution failed; both are retried next cycle.
func (b *Bot) resolveThread(ctx context.Context) bool {
	threads, err := b.client.RecentThreads(ctx, b.cfg.ThreadScanLimit)
	if err != nil {
		b.logger.Error().Err(err).Msg("listing threads failed")
		b.metrics.RecordPollError("resolve_thread")
		return false
	}

	for _, t := range threads {
		if !containsParticipant(t.ParticipantIDs, b.targetID) {
			continue
		}

		full, err := b.client.Thread(ctx, t.ID)
		if err != nil {
			// Without the seeding pass we could reply to history, so do
			// not enter polling on this thread yet.
			b.logger.Error().Err(err).Str("thread_id", t.ID).Msg("seeding thread failed")
			b.metrics.RecordPollError("seed_thread")
			return false
		}

		b.threadID = t.ID
		b.seenSet = seen.New[string](b.cfg.SeenCapacity)
		for _, msg := range full.Messages {
			b.mark(msg.ID)
		}
		b.logger.Info().
			Str("thread_id", t.ID).
			Int("existing_messages", len(full.Messages)).
			Msg("thread resolved, existing messages marked as handled")
		return true
	}

	return false
}

// pollOnce fetches the thread and applies the response policy to every
// message in it. Message order does not matter: seen-marking makes the
// pass idempotent.
func (b *Bot) pollOnce(ctx context.Context) error {
	thread, err := b.client.Thread(ctx, b.threadID)
	if err != nil {
		var apiErr *perrors.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			// Thread is gone; drop back to resolution.
			b.logger.Warn().Str("thread_id", b.threadID).Msg("thread lost, re-resolving")
			b.threadID = ""
			return nil
		}
		return err
	}

	for _, msg := range thread.Messages {
		switch Decide(msg, b.selfID, b.targetID, b.seenSet, b.now()) {
		case DecisionIgnore:
			continue

		case DecisionMarkSeen:
			b.mark(msg.ID)

		case DecisionReply:
			// Addressed to the target user, not the cached thread ID, so a
			// stale thread ID cannot misroute the reply.
			if err := b.client.SendDirectMessage(ctx, b.cfg.ResponseMessage, []string{b.targetID}); err != nil {
				b.metrics.RecordPollError("send")
				return fmt.Errorf("replying to message %s: %w", msg.ID, err)
			}
			b.logger.Info().
				Str("message_id", msg.ID).
				Str("text", msg.Text).
				Msg("replied to new message")
			b.metrics.RecordReply()
			b.mark(msg.ID)
		}
	}
	return nil
}

// mark records a message ID as handled and updates the size gauge.
func (b *Bot) mark(id string) {
	b.seenSet.Add(id)
	b.metrics.RecordMarked()
	b.metrics.SetSeenSetSize(b.seenSet.Len())
}

func containsParticipant(ids []string, id string) bool {
	for _, p := range ids {
		if p == id {
			return true
		}
	}
	return false
}
