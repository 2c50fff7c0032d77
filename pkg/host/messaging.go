package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultAPIBase is the LINE Messaging API origin.
	DefaultAPIBase = "https://api.line.me"
	// DefaultTimeout bounds each API call.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// MessagingConfig identifies the channel and the chat thread.
type MessagingConfig struct {
	AppID        string
	ChannelToken string
	UserID       string
	APIBase      string
}

// Messaging implements Client over the LINE Messaging API.
type Messaging struct {
	cfg     MessagingConfig
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.RWMutex
	ready    bool
	loggedIn bool
}

var _ Client = (*Messaging)(nil)

// MessagingOption configures Messaging.
type MessagingOption func(*Messaging)

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(client *http.Client) MessagingOption {
	return func(m *Messaging) {
		if client != nil {
			m.http = client
		}
	}
}

// WithTimeout bounds each API call.
func WithTimeout(timeout time.Duration) MessagingOption {
	return func(m *Messaging) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) MessagingOption {
	return func(m *Messaging) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMessaging builds a Messaging client. Call Init before use.
func NewMessaging(cfg MessagingConfig, options ...MessagingOption) *Messaging {
	cfg.AppID = strings.TrimSpace(cfg.AppID)
	cfg.ChannelToken = strings.TrimSpace(cfg.ChannelToken)
	cfg.UserID = strings.TrimSpace(cfg.UserID)
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	m := &Messaging{
		cfg:     cfg,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Init checks the configuration and probes the channel. Failures are returned
// as *InitError.
func (m *Messaging) Init(ctx context.Context) error {
	if m.cfg.AppID == "" {
		return &InitError{Err: errors.New("host app id is empty")}
	}
	if m.cfg.ChannelToken == "" {
		return &InitError{AppID: m.cfg.AppID, Err: errors.New("channel access token is empty")}
	}
	if err := m.probe(ctx); err != nil {
		return &InitError{AppID: m.cfg.AppID, Err: err}
	}

	m.mu.Lock()
	m.ready = true
	m.loggedIn = m.cfg.UserID != ""
	m.mu.Unlock()

	m.logger.Info("host initialised",
		zap.String("app_id", m.cfg.AppID),
		zap.Bool("logged_in", m.cfg.UserID != ""))
	return nil
}

// InClient reports whether Init succeeded and a chat thread is known.
func (m *Messaging) InClient() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready && m.cfg.UserID != ""
}

// LoggedIn reports whether the user of the chat thread is known.
func (m *Messaging) LoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loggedIn
}

// Login re-probes the channel and marks the session logged in when a user id
// is configured.
func (m *Messaging) Login(ctx context.Context) error {
	if m.cfg.UserID == "" {
		return fmt.Errorf("host: login: no user id configured")
	}
	if err := m.probe(ctx); err != nil {
		return fmt.Errorf("host: login: %w", err)
	}
	m.mu.Lock()
	m.ready = true
	m.loggedIn = true
	m.mu.Unlock()
	return nil
}

// Profile fetches the chat user's profile.
func (m *Messaging) Profile(ctx context.Context) (Profile, error) {
	if !m.LoggedIn() {
		return Profile{}, ErrNotInClient
	}
	var profile Profile
	path := "/v2/bot/profile/" + url.PathEscape(m.cfg.UserID)
	if err := m.do(ctx, http.MethodGet, path, nil, nil, &profile); err != nil {
		return Profile{}, fmt.Errorf("host: profile: %w", err)
	}
	return profile, nil
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// SendMessages pushes messages to the chat thread in one request.
func (m *Messaging) SendMessages(ctx context.Context, messages []Message) error {
	if !m.InClient() {
		return ErrNotInClient
	}
	if len(messages) == 0 {
		return nil
	}
	body := pushRequest{To: m.cfg.UserID, Messages: messages}
	headers := map[string]string{"X-Line-Retry-Key": uuid.NewString()}
	if err := m.do(ctx, http.MethodPost, "/v2/bot/message/push", headers, body, nil); err != nil {
		return fmt.Errorf("host: send messages: %w", err)
	}
	m.logger.Info("messages pushed", zap.Int("count", len(messages)))
	return nil
}

func (m *Messaging) probe(ctx context.Context) error {
	var info struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
	}
	if err := m.do(ctx, http.MethodGet, "/v2/bot/info", nil, nil, &info); err != nil {
		return err
	}
	m.logger.Debug("channel probed", zap.String("bot", info.DisplayName))
	return nil
}

func (m *Messaging) do(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.cfg.APIBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.ChannelToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(limited).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
