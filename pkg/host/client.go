// Package host abstracts the messaging platform the form runs inside: its
// initialisation, login state, user profile and the send-message capability.
package host

import (
	"context"
	"errors"
	"fmt"
)

// InitWarning is shown when the host integration could not be initialised.
// The form stays usable; only sending is unavailable.
const InitWarning = "LINEの初期化に失敗しました。送信はできませんが入力は続けられます。"

// ErrNotInClient is returned by operations that need the native client.
var ErrNotInClient = errors.New("host: not running inside the messaging client")

// Message is one outbound chat message.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewText builds a text message.
func NewText(text string) Message {
	return Message{Type: "text", Text: text}
}

// Profile is the part of the user profile the form uses.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl,omitempty"`
}

// Client is the host platform contract.
type Client interface {
	Init(ctx context.Context) error
	InClient() bool
	LoggedIn() bool
	Login(ctx context.Context) error
	Profile(ctx context.Context) (Profile, error)
	SendMessages(ctx context.Context, messages []Message) error
}

// InitError reports a failed host initialisation.
type InitError struct {
	AppID string
	Err   error
}

func (e *InitError) Error() string {
	if e == nil {
		return "host: init failed"
	}
	return fmt.Sprintf("host: init %s: %v", e.AppID, e.Err)
}

func (e *InitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError is a non-2xx answer from the messaging API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("host: api status %d", e.StatusCode)
	}
	return fmt.Sprintf("host: api status %d: %s", e.StatusCode, e.Message)
}

// Detached is the Client used outside the native client. It initialises
// cleanly and refuses to send.
type Detached struct{}

var _ Client = Detached{}

func (Detached) Init(context.Context) error { return nil }
func (Detached) InClient() bool             { return false }
func (Detached) LoggedIn() bool             { return false }

func (Detached) Login(context.Context) error { return ErrNotInClient }

func (Detached) Profile(context.Context) (Profile, error) { return Profile{}, ErrNotInClient }

func (Detached) SendMessages(context.Context, []Message) error { return ErrNotInClient }
