package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type lineStub struct {
	mu        sync.Mutex
	pushes    []pushRequest
	retryKeys []string
	auth      []string
	infoCode  int
	pushCode  int
}

func (s *lineStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = append(s.auth, r.Header.Get("Authorization"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v2/bot/info":
		if s.infoCode != 0 {
			w.WriteHeader(s.infoCode)
			_, _ = w.Write([]byte(`{"message":"Authentication failed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"userId":"Ubot","displayName":"回収センター"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v2/bot/profile/U123":
		_, _ = w.Write([]byte(`{"userId":"U123","displayName":"たろう","pictureUrl":"https://example.com/p.png"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v2/bot/message/push":
		if s.pushCode != 0 {
			w.WriteHeader(s.pushCode)
			_, _ = w.Write([]byte(`{"message":"The request body has 1 error(s)"}`))
			return
		}
		var body pushRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.pushes = append(s.pushes, body)
		s.retryKeys = append(s.retryKeys, r.Header.Get("X-Line-Retry-Key"))
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newMessaging(t *testing.T, stub *lineStub, cfg MessagingConfig) *Messaging {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	cfg.APIBase = srv.URL
	return NewMessaging(cfg, WithHTTPClient(srv.Client()))
}

func TestMessagingInitProfileAndPush(t *testing.T) {
	t.Parallel()
	stub := &lineStub{}
	m := newMessaging(t, stub, MessagingConfig{AppID: "1657000000-abc", ChannelToken: "token", UserID: "U123"})
	ctx := context.Background()

	require.False(t, m.InClient())
	require.NoError(t, m.Init(ctx))
	require.True(t, m.InClient())
	require.True(t, m.LoggedIn())

	profile, err := m.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "たろう", profile.DisplayName)

	require.NoError(t, m.SendMessages(ctx, []Message{NewText("こんにちは")}))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.pushes, 1)
	require.Equal(t, "U123", stub.pushes[0].To)
	require.Equal(t, []Message{{Type: "text", Text: "こんにちは"}}, stub.pushes[0].Messages)
	require.NotEmpty(t, stub.retryKeys[0])
	for _, auth := range stub.auth {
		require.Equal(t, "Bearer token", auth)
	}
}

func TestMessagingInitFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cases := map[string]struct {
		stub *lineStub
		cfg  MessagingConfig
	}{
		"missing app id": {&lineStub{}, MessagingConfig{ChannelToken: "token"}},
		"missing token":  {&lineStub{}, MessagingConfig{AppID: "app"}},
		"probe rejected": {&lineStub{infoCode: http.StatusUnauthorized}, MessagingConfig{AppID: "app", ChannelToken: "bad"}},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			m := newMessaging(t, tc.stub, tc.cfg)
			err := m.Init(ctx)
			var initErr *InitError
			require.ErrorAs(t, err, &initErr)
			require.False(t, m.InClient())
			require.ErrorIs(t, m.SendMessages(ctx, []Message{NewText("x")}), ErrNotInClient)
		})
	}

	m := newMessaging(t, &lineStub{infoCode: http.StatusUnauthorized}, MessagingConfig{AppID: "app", ChannelToken: "bad"})
	var apiErr *APIError
	require.ErrorAs(t, m.Init(ctx), &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Authentication failed", apiErr.Message)
}

func TestMessagingWithoutUserIsNotInClient(t *testing.T) {
	t.Parallel()
	stub := &lineStub{}
	m := newMessaging(t, stub, MessagingConfig{AppID: "app", ChannelToken: "token"})
	ctx := context.Background()

	require.NoError(t, m.Init(ctx))
	require.False(t, m.InClient())
	require.False(t, m.LoggedIn())
	require.Error(t, m.Login(ctx))
	_, err := m.Profile(ctx)
	require.ErrorIs(t, err, ErrNotInClient)
}

func TestMessagingPushFailure(t *testing.T) {
	t.Parallel()
	stub := &lineStub{pushCode: http.StatusBadRequest}
	m := newMessaging(t, stub, MessagingConfig{AppID: "app", ChannelToken: "token", UserID: "U123"})
	ctx := context.Background()
	require.NoError(t, m.Init(ctx))

	err := m.SendMessages(ctx, []Message{NewText("x")})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestDetached(t *testing.T) {
	t.Parallel()
	var c Client = Detached{}
	ctx := context.Background()
	require.NoError(t, c.Init(ctx))
	require.False(t, c.InClient())
	require.False(t, c.LoggedIn())
	require.True(t, errors.Is(c.Login(ctx), ErrNotInClient))
	require.ErrorIs(t, c.SendMessages(ctx, nil), ErrNotInClient)
}
