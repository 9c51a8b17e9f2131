package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSServer_StreamsToasts(t *testing.T) {
	hub := NewHub()
	hub.Notify(context.Background(), NewToast(Negative, "Invalid credentials"))

	srv := NewWSServer(logging.Nop{}, nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.Serve(w, r, hub)
	}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var got wireToast
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, wireToast{Type: Negative, Message: "Invalid credentials", Position: "bottom", Timeout: 3000}, got)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	hub.Notify(context.Background(), NewToast(Positive, "Login successful"))

	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "Login successful", got.Message)
}
