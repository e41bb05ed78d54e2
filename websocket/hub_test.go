package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type wsFixture struct {
	hub    *Hub
	server *httptest.Server
	users  map[string]primitive.ObjectID
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	f := &wsFixture{hub: NewHub(), users: map[string]primitive.ObjectID{}}
	go f.hub.Run()

	authenticate := func(token string) (primitive.ObjectID, error) {
		if id, ok := f.users[token]; ok {
			return id, nil
		}
		return primitive.NilObjectID, errors.New("bad token")
	}
	e := echo.New()
	e.GET("/ws", Handler(f.hub, NewUpgrader(nil), authenticate))
	f.server = httptest.NewServer(e)
	t.Cleanup(func() {
		f.server.Close()
		f.hub.Stop()
	})
	return f
}

func (f *wsFixture) dial(t *testing.T, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func readNotification(t *testing.T, conn *websocket.Conn) Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n Notification
	require.NoError(t, conn.ReadJSON(&n))
	return n
}

func TestHandler_TokenInQuery(t *testing.T) {
	f := newWSFixture(t)
	userID := primitive.NewObjectID()
	f.users["good"] = userID

	conn, _, err := f.dial(t, "?token=good")
	require.NoError(t, err)
	defer conn.Close()

	hello := readNotification(t, conn)
	assert.Equal(t, MessageTypeConnected, hello.Type)
	assert.Equal(t, userID.Hex(), hello.UserID)
	assert.False(t, hello.RequiresAuth)

	require.Eventually(t, func() bool { return f.hub.IsConnected(userID) }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, f.hub.SendToUser(userID, Notification{Type: MessageTypeNotification, Title: "Points earned", Message: "+10"}))
	got := readNotification(t, conn)
	assert.Equal(t, "Points earned", got.Title)

	conn.Close()
	assert.Eventually(t, func() bool { return !f.hub.IsConnected(userID) }, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, f.hub.SendToUser(userID, Notification{}), ErrNotConnected)
}

func TestHandler_AuthMessage(t *testing.T) {
	f := newWSFixture(t)
	userID := primitive.NewObjectID()
	f.users["later"] = userID

	conn, _, err := f.dial(t, "")
	require.NoError(t, err)
	defer conn.Close()

	hello := readNotification(t, conn)
	assert.True(t, hello.RequiresAuth)
	assert.False(t, f.hub.IsConnected(userID))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("AUTH:wrong")))
	denied := readNotification(t, conn)
	assert.Equal(t, MessageTypeAuthResponse, denied.Type)
	assert.True(t, denied.RequiresAuth)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("AUTH:later")))
	ok := readNotification(t, conn)
	assert.Equal(t, MessageTypeAuthResponse, ok.Type)
	assert.Equal(t, userID.Hex(), ok.UserID)
	assert.True(t, f.hub.IsConnected(userID))
}

func TestHandler_RejectsBadToken(t *testing.T) {
	f := newWSFixture(t)
	_, resp, err := f.dial(t, "?token=forged")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_MultipleDevices(t *testing.T) {
	f := newWSFixture(t)
	userID := primitive.NewObjectID()
	f.users["good"] = userID

	phone, _, err := f.dial(t, "?token=good")
	require.NoError(t, err)
	defer phone.Close()
	laptop, _, err := f.dial(t, "?token=good")
	require.NoError(t, err)
	defer laptop.Close()
	readNotification(t, phone)
	readNotification(t, laptop)
	require.Eventually(t, func() bool {
		f.hub.mu.RLock()
		defer f.hub.mu.RUnlock()
		return len(f.hub.clients[userID]) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.hub.SendToUser(userID, Notification{Type: MessageTypeNotification, Message: "both"}))
	assert.Equal(t, "both", readNotification(t, phone).Message)
	assert.Equal(t, "both", readNotification(t, laptop).Message)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	up := NewUpgrader([]string{"https://mansamusamarketplace.com"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, up.CheckOrigin(req), "no origin header")

	req.Header.Set("Origin", "https://MansaMusaMarketplace.com")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, up.CheckOrigin(req))

	assert.True(t, NewUpgrader([]string{"*"}).CheckOrigin(req))
}
