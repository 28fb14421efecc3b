package responder

import (
	"time"

	"github.com/rfenton/dmreply/internal/platform"
	"github.com/rfenton/dmreply/internal/seen"
)

// Decision is the outcome of evaluating one message against the response
// policy.
type Decision int

const (
	// DecisionIgnore leaves the message alone. Unmarked, so it is
	// re-evaluated next poll; that is cheap and idempotent.
	DecisionIgnore Decision = iota

	// DecisionReply sends the canned response, then marks the message seen.
	DecisionReply

	// DecisionMarkSeen marks the message seen without replying.
	DecisionMarkSeen
)

func (d Decision) String() string {
	switch d {
	case DecisionReply:
		return "reply"
	case DecisionMarkSeen:
		return "mark_seen"
	default:
		return "ignore"
	}
}

// FreshnessWindow is the maximum message age that still gets a reply.
// Older messages (for example ones sent before the bot started) are marked
// seen and never answered.
const FreshnessWindow = 5 * time.Minute

// Decide evaluates one message against the response policy. Rules are
// checked in order and the first match wins:
//
//  1. already seen            -> ignore
//  2. sent by ourselves       -> mark seen (own messages never get a reply)
//  3. not from the target     -> ignore (left unmarked)
//  4. older than the window   -> mark seen (stale)
//  5. otherwise               -> reply
//
// Decide is pure: it does not mutate the seen-set and does not send.
func Decide(msg platform.Message, selfID, targetID string, seenSet *seen.Set[string], now time.Time) Decision {
	if seenSet.Has(msg.ID) {
		return DecisionIgnore
	}
	if msg.SenderID == selfID {
		return DecisionMarkSeen
	}
	if msg.SenderID != targetID {
		return DecisionIgnore
	}
	if now.Sub(msg.Timestamp.UTC()) > FreshnessWindow {
		return DecisionMarkSeen
	}
	return DecisionReply
}
