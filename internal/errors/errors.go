// Package errors provides structured error types for the responder.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout     = errors.New("operation timed out")
	ErrAuthFailure = errors.New("authentication failed")
	ErrRateLimit   = errors.New("rate limit exceeded")
	ErrNotFound    = errors.New("resource not found")
	ErrNoSession   = errors.New("no active session")
	ErrUnavailable = errors.New("service unavailable")
)

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}

// AuthKind classifies a login failure.
type AuthKind int

const (
	AuthUnknown AuthKind = iota
	AuthAccountNotFound
	AuthBadCredentials
	AuthChallengeRequired
	AuthRateLimited
)

func (k AuthKind) String() string {
	switch k {
	case AuthAccountNotFound:
		return "account_not_found"
	case AuthBadCredentials:
		return "bad_credentials"
	case AuthChallengeRequired:
		return "challenge_required"
	case AuthRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// ClassifyAuth maps a login error onto an AuthKind by inspecting the error
// text. The platform does not expose structured error codes at the login
// boundary, so classification is best-effort and not guaranteed accurate.
func ClassifyAuth(err error) AuthKind {
	if err == nil {
		return AuthUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "can't find an account"),
		strings.Contains(msg, "user not found"):
		return AuthAccountNotFound
	case strings.Contains(msg, "password"),
		strings.Contains(msg, "incorrect"),
		strings.Contains(msg, "wrong"):
		return AuthBadCredentials
	case strings.Contains(msg, "checkpoint"),
		strings.Contains(msg, "challenge"):
		return AuthChallengeRequired
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many"):
		return AuthRateLimited
	default:
		return AuthUnknown
	}
}

// Remediation returns operator-facing hints for an auth failure kind.
// One line per hint.
func (k AuthKind) Remediation() []string {
	switch k {
	case AuthAccountNotFound:
		return []string{
			"account not found — the platform can't find this account",
			"USERNAME may be an email; the platform accepts both email and handle",
			"check USERNAME in the environment (or .env) matches the account exactly",
		}
	case AuthBadCredentials:
		return []string{
			"incorrect password",
			"double-check PASSWORD in the environment (or .env)",
			"make sure there are no extra spaces or quotes",
		}
	case AuthChallengeRequired:
		return []string{
			"security check required — the platform needs to verify it's you",
			"check your email/phone for a verification code",
			"you may need to approve the login from the platform's app",
		}
	case AuthRateLimited:
		return []string{
			"too many login attempts",
			"wait 10-15 minutes before trying again",
		}
	default:
		return []string{
			"check USERNAME in the environment (can be email or handle)",
			"check PASSWORD in the environment",
			"if the account has 2FA, a verification code will be prompted for",
			"you may need to approve the login from the platform's app",
		}
	}
}
