package responder

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rfenton/dmreply/internal/platform"
	"github.com/rfenton/dmreply/internal/seen"
)

const (
	selfID   = "u-self"
	targetID = "u-friend"
	otherID  = "u-stranger"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id, sender string, age time.Duration) platform.Message {
	return platform.Message{
		ID:        id,
		SenderID:  sender,
		Text:      "hello",
		Timestamp: now.Add(-age),
	}
}

func TestDecide_Rules(t *testing.T) {
	tests := []struct {
		name string
		msg  platform.Message
		seed []string
		want Decision
	}{
		{
			name: "already seen",
			msg:  msg("m-1", targetID, 10*time.Second),
			seed: []string{"m-1"},
			want: DecisionIgnore,
		},
		{
			name: "own outgoing message",
			msg:  msg("m-2", selfID, time.Second),
			want: DecisionMarkSeen,
		},
		{
			name: "own stale message still only marked",
			msg:  msg("m-3", selfID, time.Hour),
			want: DecisionMarkSeen,
		},
		{
			name: "third party left unmarked",
			msg:  msg("m-4", otherID, 10*time.Second),
			want: DecisionIgnore,
		},
		{
			name: "fresh target message",
			msg:  msg("m-5", targetID, 10*time.Second),
			want: DecisionReply,
		},
		{
			name: "exactly at the window boundary",
			msg:  msg("m-6", targetID, FreshnessWindow),
			want: DecisionReply,
		},
		{
			name: "stale target message",
			msg:  msg("m-7", targetID, FreshnessWindow+time.Second),
			want: DecisionMarkSeen,
		},
		{
			name: "seen wins over self",
			msg:  msg("m-8", selfID, time.Second),
			seed: []string{"m-8"},
			want: DecisionIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenSet := seen.New[string](DefaultSeenCapacity)
			for _, id := range tt.seed {
				seenSet.Add(id)
			}
			got := Decide(tt.msg, selfID, targetID, seenSet, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecide_NonUTCTimestamp(t *testing.T) {
	// A zoned timestamp is compared as an instant, not as wall-clock text.
	loc := time.FixedZone("UTC+2", 2*3600)
	m := platform.Message{
		ID:        "m-1",
		SenderID:  targetID,
		Timestamp: now.Add(-10 * time.Second).In(loc),
	}
	seenSet := seen.New[string](DefaultSeenCapacity)
	assert.Equal(t, DecisionReply, Decide(m, selfID, targetID, seenSet, now))
}

func TestDecide_SecondEvaluationIgnores(t *testing.T) {
	seenSet := seen.New[string](DefaultSeenCapacity)
	m := msg("m-1", targetID, 10*time.Second)

	assert.Equal(t, DecisionReply, Decide(m, selfID, targetID, seenSet, now))

	// After the reply the caller marks the message; the next evaluation
	// must ignore it.
	seenSet.Add(m.ID)
	assert.Equal(t, DecisionIgnore, Decide(m, selfID, targetID, seenSet, now))
}

func TestDecide_Pure(t *testing.T) {
	seenSet := seen.New[string](DefaultSeenCapacity)
	m := msg("m-1", targetID, 10*time.Second)

	Decide(m, selfID, targetID, seenSet, now)
	assert.Equal(t, 0, seenSet.Len(), "Decide must not mutate the seen-set")
}

func TestDecide_ThirdPartyReevaluated(t *testing.T) {
	seenSet := seen.New[string](DefaultSeenCapacity)
	m := msg("m-1", otherID, 10*time.Second)

	// Ignored and unmarked: the same answer comes back every poll.
	for i := 0; i < 3; i++ {
		assert.Equal(t, DecisionIgnore, Decide(m, selfID, targetID, seenSet, now))
	}
	assert.Equal(t, 0, seenSet.Len())
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "ignore", DecisionIgnore.String())
	assert.Equal(t, "reply", DecisionReply.String())
	assert.Equal(t, "mark_seen", DecisionMarkSeen.String())
}

func TestSeenSet_BoundedUnderChurn(t *testing.T) {
	seenSet := seen.New[string](DefaultSeenCapacity)
	for i := 1; i <= 150; i++ {
		seenSet.Add(fmt.Sprintf("m-%d", i))
	}
	assert.Equal(t, DefaultSeenCapacity, seenSet.Len())

	// The retained IDs are the most recently inserted: a previously
	// replied-to message that aged out of the set becomes eligible for
	// re-evaluation, an accepted consequence of the bound.
	assert.False(t, seenSet.Has("m-50"))
	assert.True(t, seenSet.Has("m-51"))
	assert.True(t, seenSet.Has("m-150"))
}
