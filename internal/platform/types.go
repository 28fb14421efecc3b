// Package platform wraps the messaging platform's private API. The rest of
// the application depends only on the Client capability interface, never on
// the transport.
package platform

import (
	"context"
	"time"
)

// Message is a single direct message. Immutable once fetched; Timestamp is
// always a timezone-aware UTC instant.
type Message struct {
	ID        string
	SenderID  string
	Text      string
	Timestamp time.Time
}

// ThreadSummary identifies a conversation thread and its participants.
type ThreadSummary struct {
	ID             string
	ParticipantIDs []string
}

// Thread is a conversation thread with its messages as returned by the
// platform (typically newest-first).
type Thread struct {
	ID       string
	Messages []Message
}

// Client is the capability surface the session manager and responder use.
type Client interface {
	// Login authenticates with username and password. A challenge demand
	// surfaces as an error classifiable as challenge-required.
	Login(ctx context.Context, username, password string) error

	// RestoreSession loads a previously persisted session blob and
	// validates it against the platform.
	RestoreSession(ctx context.Context, blob []byte) error

	// SessionBlob serializes the current session for persistence. The blob
	// is opaque to callers.
	SessionBlob() ([]byte, error)

	// SubmitChallengeCode completes a pending login challenge with a
	// one-time verification code.
	SubmitChallengeCode(ctx context.Context, code string) error

	// SelfID returns the authenticated account's user ID, or "" before login.
	SelfID() string

	// UserIDByUsername resolves a handle to a user ID.
	UserIDByUsername(ctx context.Context, handle string) (string, error)

	// RecentThreads lists up to limit recent threads with participants.
	RecentThreads(ctx context.Context, limit int) ([]ThreadSummary, error)

	// Thread fetches a thread's full message list.
	Thread(ctx context.Context, threadID string) (*Thread, error)

	// SendDirectMessage sends text to the given recipients.
	SendDirectMessage(ctx context.Context, text string, recipientIDs []string) error
}
