// Package session establishes and persists the authenticated platform
// session, including the interactive challenge step.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	perrors "github.com/rfenton/dmreply/internal/errors"
	"github.com/rfenton/dmreply/internal/metrics"
	"github.com/rfenton/dmreply/internal/platform"
)

// CodePrompter asks the operator for a one-time verification code. The call
// blocks until the operator answers.
type CodePrompter interface {
	PromptCode(label string) (string, error)
}

// StdinPrompter reads a verification code from an input stream, normally
// os.Stdin.
type StdinPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdinPrompter creates a prompter over the given streams.
func NewStdinPrompter(in io.Reader, out io.Writer) *StdinPrompter {
	return &StdinPrompter{in: bufio.NewReader(in), out: out}
}

func (p *StdinPrompter) PromptCode(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading verification code: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Manager establishes an authenticated session, persisting it to a local
// file so subsequent runs can skip login and challenge.
type Manager struct {
	client  platform.Client
	file    string
	prompt  CodePrompter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewManager creates a session manager. The file path holds the persisted
// session blob between runs; its absence is not an error.
func NewManager(client platform.Client, file string, prompt CodePrompter, m *metrics.Metrics, logger zerolog.Logger) *Manager {
	return &Manager{
		client:  client,
		file:    file,
		prompt:  prompt,
		metrics: m,
		logger:  logger.With().Str("component", "session").Logger(),
	}
}

// Establish logs in, preferring a persisted session over a fresh login and
// handling a challenge demand interactively. It returns true on success.
// On failure it logs a classified remediation hint and returns false; the
// caller decides to terminate the run. It never panics or propagates.
func (m *Manager) Establish(ctx context.Context, username, password string) bool {
	m.logger.Info().Str("username", username).Msg("logging in")

	if m.tryRestore(ctx) {
		return true
	}

	err := m.client.Login(ctx, username, password)
	if err == nil {
		m.persist()
		m.logger.Info().Msg("logged in and saved new session")
		return true
	}

	if perrors.ClassifyAuth(err) == perrors.AuthChallengeRequired {
		return m.handleChallenge(ctx, err)
	}

	m.logFailure(err)
	return false
}

// tryRestore attempts to reuse the persisted session file. Any failure falls
// through to a fresh login.
func (m *Manager) tryRestore(ctx context.Context) bool {
	blob, err := os.ReadFile(m.file)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn().Err(err).Str("file", m.file).Msg("reading session file failed, trying fresh login")
		}
		m.metrics.RecordSessionRestore("absent")
		return false
	}

	if err := m.client.RestoreSession(ctx, blob); err != nil {
		m.logger.Warn().Err(err).Msg("session restore failed, trying fresh login")
		m.metrics.RecordSessionRestore("fallback")
		return false
	}

	m.persist()
	m.metrics.RecordSessionRestore("restored")
	m.logger.Info().Msg("logged in using saved session")
	return true
}

// handleChallenge prompts the operator for a one-time code and submits it.
func (m *Manager) handleChallenge(ctx context.Context, loginErr error) bool {
	m.logger.Warn().Err(loginErr).Msg("platform is asking for verification (2FA or challenge)")

	code, err := m.prompt.PromptCode("Enter the verification code sent to your phone/email")
	if err != nil {
		m.logFailure(fmt.Errorf("challenge prompt: %w", err))
		return false
	}

	if err := m.client.SubmitChallengeCode(ctx, code); err != nil {
		m.logFailure(err)
		return false
	}

	m.persist()
	m.logger.Info().Msg("challenge completed")
	return true
}

// persist writes the session blob to the session file. A persist failure is
// not fatal: the in-memory session stays valid for this run.
func (m *Manager) persist() {
	blob, err := m.client.SessionBlob()
	if err != nil {
		m.logger.Warn().Err(err).Msg("serializing session failed, not persisted")
		return
	}
	if err := os.WriteFile(m.file, blob, 0o600); err != nil {
		m.logger.Warn().Err(err).Str("file", m.file).Msg("persisting session failed")
	}
}

// logFailure logs the login error with its classified remediation hints.
func (m *Manager) logFailure(err error) {
	kind := perrors.ClassifyAuth(err)
	m.logger.Error().Err(err).Str("kind", kind.String()).Msg("login failed")
	for _, hint := range kind.Remediation() {
		m.logger.Error().Msg(hint)
	}
}
