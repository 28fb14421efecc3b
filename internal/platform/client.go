package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	perrors "github.com/rfenton/dmreply/internal/errors"
	"github.com/rfenton/dmreply/internal/retry"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient is the HTTP implementation of Client.
//
// Session state (device ID, token, user ID) is mutated by Login,
// RestoreSession and SubmitChallengeCode. The process has a single thread
// of control, so no locking is needed.
type APIClient struct {
	baseURL    string
	httpClient HTTPClient
	logger     zerolog.Logger
	retryCfg   retry.Config

	deviceID string
	token    string
	userID   string
	username string
}

var _ Client = (*APIClient)(nil)

// NewAPIClient creates a platform API client.
func NewAPIClient(baseURL string, logger zerolog.Logger) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "platform").Logger(),
		retryCfg:   retry.DefaultConfig(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *APIClient) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// --- wire types ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type challengeRequest struct {
	Username string `json:"username"`
	DeviceID string `json:"device_id"`
	Code     string `json:"code"`
}

type authResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type accountResponse struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type threadsResponse struct {
	Threads []struct {
		ID             string   `json:"id"`
		ParticipantIDs []string `json:"participant_ids"`
	} `json:"threads"`
}

type threadResponse struct {
	Thread struct {
		ID       string        `json:"id"`
		Messages []wireMessage `json:"messages"`
	} `json:"thread"`
}

type wireMessage struct {
	ID        string   `json:"id"`
	SenderID  string   `json:"sender_id"`
	Text      string   `json:"text"`
	Timestamp wireTime `json:"timestamp"`
}

type sendRequest struct {
	Text         string   `json:"text"`
	RecipientIDs []string `json:"recipient_ids"`
}

// sessionState is the persisted session blob. Opaque outside this package.
type sessionState struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// wireTime decodes the platform's timestamp encodings: RFC3339, a zoneless
// variant, or unix seconds. Zoneless timestamps are assumed UTC.
type wireTime struct {
	time.Time
}

func (w *wireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		w.Time = t.UTC()
		return nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		w.Time = t.UTC()
		return nil
	}

	var unix int64
	if err := json.Unmarshal(data, &unix); err == nil {
		w.Time = time.Unix(unix, 0).UTC()
		return nil
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

// --- auth ---

// Login performs a fresh username/password login. The device ID is minted
// once per fresh login and carried in the session blob afterwards.
func (c *APIClient) Login(ctx context.Context, username, password string) error {
	if c.deviceID == "" {
		c.deviceID = uuid.NewString()
	}
	c.username = username

	var resp authResponse
	err := c.postJSON(ctx, "/api/v1/auth/login", loginRequest{
		Username: username,
		Password: password,
		DeviceID: c.deviceID,
	}, &resp)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.token = resp.Token
	c.userID = resp.UserID
	c.logger.Info().Str("user_id", c.userID).Msg("logged in")
	return nil
}

// SubmitChallengeCode completes a pending challenge for the username that
// last attempted Login.
func (c *APIClient) SubmitChallengeCode(ctx context.Context, code string) error {
	var resp authResponse
	err := c.postJSON(ctx, "/api/v1/auth/challenge", challengeRequest{
		Username: c.username,
		DeviceID: c.deviceID,
		Code:     strings.TrimSpace(code),
	}, &resp)
	if err != nil {
		return fmt.Errorf("challenge: %w", err)
	}

	c.token = resp.Token
	c.userID = resp.UserID
	c.logger.Info().Str("user_id", c.userID).Msg("challenge completed")
	return nil
}

// RestoreSession loads a persisted session blob and validates it with one
// authenticated call.
func (c *APIClient) RestoreSession(ctx context.Context, blob []byte) error {
	var st sessionState
	if err := json.Unmarshal(blob, &st); err != nil {
		return fmt.Errorf("restore: decoding session blob: %w", err)
	}
	if st.Token == "" || st.DeviceID == "" {
		return fmt.Errorf("restore: session blob incomplete")
	}

	c.deviceID = st.DeviceID
	c.token = st.Token
	c.userID = st.UserID
	c.username = st.Username

	var resp accountResponse
	if err := c.getJSON(ctx, "/api/v1/account/current", nil, &resp); err != nil {
		c.token = ""
		c.userID = ""
		return fmt.Errorf("restore: validating session: %w", err)
	}
	c.userID = resp.User.ID
	c.logger.Info().Str("user_id", c.userID).Msg("session restored")
	return nil
}

// SessionBlob serializes the current session for persistence.
func (c *APIClient) SessionBlob() ([]byte, error) {
	if c.token == "" {
		return nil, perrors.ErrNoSession
	}
	return json.Marshal(sessionState{
		DeviceID: c.deviceID,
		Token:    c.token,
		UserID:   c.userID,
		Username: c.username,
	})
}

// SelfID returns the authenticated user ID, or "" before login.
func (c *APIClient) SelfID() string {
	return c.userID
}

// --- lookups and messaging ---

// UserIDByUsername resolves a handle to a user ID.
func (c *APIClient) UserIDByUsername(ctx context.Context, handle string) (string, error) {
	q := url.Values{"username": {handle}}
	var resp accountResponse
	if err := c.getJSON(ctx, "/api/v1/users/by_username", q, &resp); err != nil {
		return "", fmt.Errorf("user lookup %q: %w", handle, err)
	}
	if resp.User.ID == "" {
		return "", fmt.Errorf("user lookup %q: %w", handle, perrors.ErrNotFound)
	}
	return resp.User.ID, nil
}

// RecentThreads lists up to limit recent threads.
func (c *APIClient) RecentThreads(ctx context.Context, limit int) ([]ThreadSummary, error) {
	q := url.Values{"limit": {fmt.Sprintf("%d", limit)}}
	var resp threadsResponse
	if err := c.getJSON(ctx, "/api/v1/direct/threads", q, &resp); err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}

	threads := make([]ThreadSummary, 0, len(resp.Threads))
	for _, t := range resp.Threads {
		threads = append(threads, ThreadSummary{ID: t.ID, ParticipantIDs: t.ParticipantIDs})
	}
	return threads, nil
}

// Thread fetches a thread's full message list.
func (c *APIClient) Thread(ctx context.Context, threadID string) (*Thread, error) {
	var resp threadResponse
	if err := c.getJSON(ctx, "/api/v1/direct/threads/"+url.PathEscape(threadID), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching thread %s: %w", threadID, err)
	}

	thread := &Thread{ID: resp.Thread.ID}
	for _, m := range resp.Thread.Messages {
		thread.Messages = append(thread.Messages, Message{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			Timestamp: m.Timestamp.Time,
		})
	}
	return thread, nil
}

// SendDirectMessage sends text addressed to the given recipients. Never
// retried — a duplicate send is worse than a missed cycle.
func (c *APIClient) SendDirectMessage(ctx context.Context, text string, recipientIDs []string) error {
	err := c.postJSON(ctx, "/api/v1/direct/send", sendRequest{
		Text:         text,
		RecipientIDs: recipientIDs,
	}, nil)
	if err != nil {
		return fmt.Errorf("sending direct message: %w", err)
	}
	return nil
}

// --- transport ---

// getJSON executes an idempotent GET with retry on transient failures.
func (c *APIClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
	})
}

// postJSON executes a single non-retried POST.
func (c *APIClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return perrors.NewAPIError("platform", resp.StatusCode, apiMessage(resp.Body))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiMessage extracts the platform's error message from a response body,
// falling back to the raw body.
func apiMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}
