package chatclient_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/relaychat/internal/chatclient"
	"github.com/Tyrowin/relaychat/internal/presence"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/testhelpers"
)

// syncBuffer lets the test read output while Listen is writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startRelay(t *testing.T) string {
	t.Helper()
	srv := server.New(server.NewConfig(), testhelpers.DiscardLogger())
	srv.Start()
	testServer := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		testServer.Close()
		_ = srv.Hub().Shutdown(2 * time.Second)
	})
	return testhelpers.WebSocketURL(testServer.URL)
}

func joinObserver(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn := testhelpers.MustConnect(t, wsURL)
	testhelpers.Emit(t, conn, protocol.EventSetUsername, "observer")
	testhelpers.ExpectEvent(t, conn, protocol.EventUserJoined, nil)
	testhelpers.ExpectEvent(t, conn, protocol.EventUpdateUsers, nil)
	return conn
}

func dial(t *testing.T, wsURL, username string, out *syncBuffer) *chatclient.Client {
	t.Helper()
	cfg := &chatclient.Config{ServerURL: wsURL, Username: username, Origin: testhelpers.TestOrigin}
	client, err := chatclient.Dial(context.Background(), cfg, testhelpers.DiscardLogger(), out)
	require.NoError(t, err)
	return client
}

func TestClient_Session(t *testing.T) {
	req := require.New(t)
	wsURL := startRelay(t)
	observer := joinObserver(t, wsURL)

	out := &syncBuffer{}
	client := dial(t, wsURL, "carol", out)
	ctx, cancel := context.WithCancel(context.Background())
	listenErr := make(chan error, 1)
	go func() { listenErr <- client.Listen(ctx) }()

	// Given carol joins, the observer sees her arrive
	req.NoError(client.Join())
	var joined string
	testhelpers.ExpectEvent(t, observer, protocol.EventUserJoined, &joined)
	req.Equal("carol", joined)
	var users []presence.User
	testhelpers.ExpectEvent(t, observer, protocol.EventUpdateUsers, &users)
	req.Len(users, 2)

	req.Eventually(func() bool {
		return strings.Contains(out.String(), "carol joined the chat")
	}, 2*time.Second, 20*time.Millisecond)

	// When carol chats, the message is framed by typing on and off
	req.NoError(client.Handle("hello"))
	var typing protocol.UserTyping
	testhelpers.ExpectEvent(t, observer, protocol.EventUserTyping, &typing)
	req.Equal(protocol.UserTyping{User: "carol", IsTyping: true}, typing)
	var msg protocol.ChatMessage
	testhelpers.ExpectEvent(t, observer, protocol.EventChatMessage, &msg)
	req.Equal(protocol.ChatMessage{User: "carol", Message: "hello"}, msg)
	testhelpers.ExpectEvent(t, observer, protocol.EventUserTyping, &typing)
	req.False(typing.IsTyping)

	// When carol whispers, the observer receives it and carol sees her own copy
	req.NoError(client.Handle("/w observer psst now"))
	testhelpers.ExpectEvent(t, observer, protocol.EventUserTyping, nil)
	var private protocol.PrivateMessage
	testhelpers.ExpectEvent(t, observer, protocol.EventPrivate, &private)
	req.Equal(protocol.PrivateMessage{From: "carol", Message: "psst now"}, private)
	testhelpers.ExpectEvent(t, observer, protocol.EventUserTyping, nil)
	req.Contains(out.String(), "carol -> observer:")

	// When the observer replies privately, carol renders it
	testhelpers.Emit(t, observer, protocol.EventPrivate, protocol.PrivateRequest{To: "carol", Message: "got it"})
	req.Eventually(func() bool {
		return strings.Contains(out.String(), "got it")
	}, 2*time.Second, 20*time.Millisecond)

	req.ErrorIs(client.Handle("/quit"), chatclient.ErrQuit)
	cancel()
	req.NoError(<-listenErr)
	_ = client.Close()

	var left string
	testhelpers.ExpectEvent(t, observer, protocol.EventUserLeft, &left)
	req.Equal("carol", left)
}

func TestClient_Handle_Local_Commands(t *testing.T) {
	req := require.New(t)
	wsURL := startRelay(t)

	out := &syncBuffer{}
	client := dial(t, wsURL, "dave", out)
	t.Cleanup(func() { _ = client.Close() })

	req.NoError(client.Handle("   "))
	req.Empty(out.String())

	req.NoError(client.Handle("/w bob"))
	req.Contains(out.String(), "usage: /w <user> <text>")

	req.NoError(client.Handle("/users"))
	req.Contains(out.String(), "USERNAME")
}

func TestClient_Dial_Rejected_Origin(t *testing.T) {
	wsURL := startRelay(t)
	cfg := &chatclient.Config{ServerURL: wsURL, Username: "eve", Origin: "http://evil.example"}

	_, err := chatclient.Dial(context.Background(), cfg, testhelpers.DiscardLogger(), &syncBuffer{})

	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CHAT_USERNAME", "alice")

		cfg, err := chatclient.LoadConfig()

		require.NoError(t, err)
		require.Equal(t, "ws://localhost:5001/ws", cfg.ServerURL)
		require.Equal(t, "http://localhost:5001", cfg.Origin)
		require.Equal(t, "alice", cfg.Username)
	})

	t.Run("username is required", func(t *testing.T) {
		t.Setenv("CHAT_USERNAME", "")

		_, err := chatclient.LoadConfig()

		require.Error(t, err)
	})
}
