package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/bahodir0902/blogclient/adapters/events"
	"github.com/bahodir0902/blogclient/adapters/store"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

// wsServer accepts connections, reports each dial's token query parameter on
// tokens, and forwards anything sent on send to the connected client.
func wsServer(t *testing.T, tokens chan<- string, send <-chan []byte) *httptest.Server {
	t.Helper()

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens <- r.URL.Query().Get("token")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientGone := make(chan struct{})
		go func() {
			conn.Read(context.Background())
			close(clientGone)
		}()

		for {
			select {
			case payload := <-send:
				if err := conn.Write(context.Background(), websocket.MessageText, payload); err != nil {
					return
				}
			case <-clientGone:
				return
			case <-done:
				return
			}
		}
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})
	return srv
}

func wsURL(srv *httptest.Server) string {
	return strings.Replace(srv.URL, "http", "ws", 1)
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func testPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

func TestChannelStreamsPayloads(t *testing.T) {
	tokens := make(chan string, 4)
	send := make(chan []byte)
	srv := wsServer(t, tokens, send)

	credentials := store.NewMemoryStore()
	require.NoError(t, credentials.Save(context.Background(), "a1", "r1"))

	received := make(chan []byte, 4)
	ch := NewChannel(Config{URL: wsURL(srv)}, credentials, testPubSub(), func(payload []byte) {
		received <- payload
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ch.Run(ctx) }()

	require.Equal(t, "a1", recv(t, tokens, "connection"))

	send <- []byte(`{"kind":"post.published"}`)
	require.JSONEq(t, `{"kind":"post.published"}`, string(recv(t, received, "payload")))

	cancel()
	require.ErrorIs(t, recv(t, runDone, "shutdown"), context.Canceled)
}

func TestChannelRedialsOnCredentialUpdate(t *testing.T) {
	tokens := make(chan string, 4)
	srv := wsServer(t, tokens, make(chan []byte))

	credentials := store.NewMemoryStore()
	require.NoError(t, credentials.Save(context.Background(), "a1", "r1"))

	pubsub := testPubSub()
	ch := NewChannel(Config{URL: wsURL(srv)}, credentials, pubsub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	require.Equal(t, "a1", recv(t, tokens, "first connection"))

	// Renewal: new credential lands in the store, then the event fires.
	require.NoError(t, credentials.Save(context.Background(), "a2", "r2"))
	require.NoError(t, events.NewWatermillPublisher(pubsub).PublishUpdated(context.Background(), "a2"))

	require.Equal(t, "a2", recv(t, tokens, "redial"))
}

func TestChannelStopsDialingAfterClear(t *testing.T) {
	tokens := make(chan string, 4)
	srv := wsServer(t, tokens, make(chan []byte))

	credentials := store.NewMemoryStore()
	require.NoError(t, credentials.Save(context.Background(), "a1", "r1"))

	pubsub := testPubSub()
	ch := NewChannel(Config{URL: wsURL(srv)}, credentials, pubsub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	require.Equal(t, "a1", recv(t, tokens, "first connection"))

	require.NoError(t, credentials.Clear(context.Background()))
	require.NoError(t, events.NewWatermillPublisher(pubsub).PublishCleared(context.Background(), "logout"))

	select {
	case tok := <-tokens:
		t.Fatalf("unexpected dial with token %q after session was cleared", tok)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestChannelGivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // every dial now fails

	credentials := store.NewMemoryStore()
	require.NoError(t, credentials.Save(context.Background(), "a1", "r1"))

	cfg := Config{
		URL:         wsURL(srv),
		DialTimeout: 500 * time.Millisecond,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}
	ch := NewChannel(cfg, credentials, testPubSub(), nil)

	err := ch.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "gave up after 3 attempts")
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	ch := NewChannel(Config{URL: "ws://unused", BaseBackoff: time.Second, MaxBackoff: 5 * time.Second}, nil, nil, nil)

	require.Equal(t, time.Second, ch.backoff(1))
	require.Equal(t, 2*time.Second, ch.backoff(2))
	require.Equal(t, 4*time.Second, ch.backoff(3))
	require.Equal(t, 5*time.Second, ch.backoff(4))
	require.Equal(t, 5*time.Second, ch.backoff(40))
}
