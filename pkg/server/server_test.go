package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/comms"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/config"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/game"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type frame struct {
	Type    string         `json:"type"`
	Game    *game.Snapshot `json:"game"`
	GameID  string         `json:"game_id"`
	Message string         `json:"message"`
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	s := NewServer(zaptest.NewLogger(t), config.Default(), func(r *http.Request) bool { return true })
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, gameID, playerID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + gameID + "/" + playerID
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func read(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func readType(t *testing.T, c *websocket.Conn, typ string) frame {
	t.Helper()
	f := read(t, c)
	require.Equal(t, typ, f.Type, "message: %q", f.Message)
	return f
}

func write(t *testing.T, c *websocket.Conn, body string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(body)))
}

func expectClosed(t *testing.T, c *websocket.Conn) {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

// joinBoth seats p1 and p2 in gameID and drains the join messages.
func joinBoth(t *testing.T, ts *httptest.Server, gameID string) (*websocket.Conn, *websocket.Conn) {
	p1 := dial(t, ts, gameID, "p1")
	readType(t, p1, comms.TypeJoined)
	p2 := dial(t, ts, gameID, "p2")
	readType(t, p1, comms.TypeState)
	readType(t, p2, comms.TypeState)
	readType(t, p2, comms.TypeJoined)
	return p1, p2
}

func TestServer_JoinAndMove(t *testing.T) {
	_, ts := newTestServer(t)

	p1 := dial(t, ts, "g1", "p1")
	joined := readType(t, p1, comms.TypeJoined)
	require.NotNil(t, joined.Game)
	assert.Equal(t, "g1", joined.Game.ID)
	assert.Equal(t, 0, joined.Game.Players["p1"].Symbol)
	assert.Nil(t, joined.Game.Turn)

	p2 := dial(t, ts, "g1", "p2")
	for _, c := range []*websocket.Conn{p1, p2} {
		state := readType(t, c, comms.TypeState)
		require.NotNil(t, state.Game.Turn)
		assert.Equal(t, "p1", *state.Game.Turn)
	}
	joined = readType(t, p2, comms.TypeJoined)
	assert.Equal(t, 1, joined.Game.Players["p2"].Symbol)

	write(t, p1, `{"type":"move","index":4}`)
	for _, c := range []*websocket.Conn{p1, p2} {
		state := readType(t, c, comms.TypeState)
		assert.Equal(t, game.Nought, state.Game.Board[4])
		assert.Equal(t, []int{4}, state.Game.Players["p1"].Moves)
		require.NotNil(t, state.Game.Turn)
		assert.Equal(t, "p2", *state.Game.Turn)
	}
}

func TestServer_RejectedMoves(t *testing.T) {
	_, ts := newTestServer(t)
	p1, p2 := joinBoth(t, ts, "g1")

	write(t, p2, `{"type":"move","index":0}`)
	assert.Equal(t, "Not your turn", readType(t, p2, comms.TypeError).Message)

	write(t, p1, `{"type":"move","index":9}`)
	assert.Equal(t, "Invalid index", readType(t, p1, comms.TypeError).Message)

	write(t, p1, `{"type":"move","index":0}`)
	readType(t, p1, comms.TypeState)
	readType(t, p2, comms.TypeState)

	write(t, p2, `{"type":"move","index":0}`)
	assert.Equal(t, "Cell occupied", readType(t, p2, comms.TypeError).Message)
}

func TestServer_ProtocolErrorsKeepConnectionOpen(t *testing.T) {
	_, ts := newTestServer(t)
	p1, p2 := joinBoth(t, ts, "g1")

	write(t, p1, `not json`)
	assert.Equal(t, "Malformed message", readType(t, p1, comms.TypeError).Message)

	write(t, p1, `{"type":"dance"}`)
	assert.Equal(t, "Unknown message type", readType(t, p1, comms.TypeError).Message)

	write(t, p1, `{"type":"move"}`)
	assert.Contains(t, readType(t, p1, comms.TypeError).Message, "Malformed message")

	write(t, p1, `{"type":"ping"}`)
	write(t, p1, `{"type":"move","index":8}`)
	state := readType(t, p1, comms.TypeState)
	assert.Equal(t, game.Nought, state.Game.Board[8])
	readType(t, p2, comms.TypeState)
}

func TestServer_GameFull(t *testing.T) {
	_, ts := newTestServer(t)
	joinBoth(t, ts, "g1")

	p3 := dial(t, ts, "g1", "p3")
	assert.Equal(t, "Game full", readType(t, p3, comms.TypeError).Message)
	expectClosed(t, p3)
}

func TestServer_Reconnect(t *testing.T) {
	s, ts := newTestServer(t)

	p1 := dial(t, ts, "g1", "p1")
	readType(t, p1, comms.TypeJoined)
	require.NoError(t, p1.Close())

	again := dial(t, ts, "g1", "p1")
	joined := readType(t, again, comms.TypeJoined)
	assert.Len(t, joined.Game.Players, 1)
	assert.Equal(t, 0, joined.Game.Players["p1"].Symbol)

	session, ok := s.sessions.Get("g1")
	require.True(t, ok)
	assert.Eventually(t, func() bool { return session.Connected("p1") }, time.Second, 10*time.Millisecond)
}

func TestServer_DisconnectForfeits(t *testing.T) {
	_, ts := newTestServer(t)
	p1, p2 := joinBoth(t, ts, "g1")

	require.NoError(t, p1.Close())

	state := readType(t, p2, comms.TypeState)
	require.NotNil(t, state.Game.Winner)
	assert.Equal(t, "p2", *state.Game.Winner)
}

func TestServer_Matchmaking(t *testing.T) {
	s, ts := newTestServer(t)

	a := dial(t, ts, "random", "a")
	assert.Eventually(t, func() bool {
		waiting, ok := s.matchmaker.Waiting()
		return ok && waiting == "a"
	}, time.Second, 10*time.Millisecond)

	// anything but a heartbeat gets a reminder while waiting
	write(t, a, `{"type":"move","index":0}`)
	assert.Equal(t, infoWaiting, readType(t, a, comms.TypeInfo).Message)

	b := dial(t, ts, "random", "b")
	gameID := readType(t, b, comms.TypeMatchFound).GameID
	require.Len(t, gameID, 8)
	expectClosed(t, b)

	assert.Equal(t, gameID, readType(t, a, comms.TypeMatchFound).GameID)
	assert.Equal(t, infoMatched, readType(t, a, comms.TypeInfo).Message)
	expectClosed(t, a)

	a = dial(t, ts, gameID, "a")
	joined := readType(t, a, comms.TypeJoined)
	assert.Equal(t, 0, joined.Game.Players["a"].Symbol)
	assert.Equal(t, 1, joined.Game.Players["b"].Symbol)
	require.NotNil(t, joined.Game.Turn)
	assert.Equal(t, "a", *joined.Game.Turn)
}

func TestServer_MatchmakingSupersede(t *testing.T) {
	s, ts := newTestServer(t)

	old := dial(t, ts, "random", "a")
	assert.Eventually(t, func() bool {
		_, ok := s.matchmaker.Waiting()
		return ok
	}, time.Second, 10*time.Millisecond)

	dial(t, ts, "random", "a")
	assert.Equal(t, "superseded by a newer connection", readType(t, old, comms.TypeInfo).Message)
	expectClosed(t, old)

	waiting, ok := s.matchmaker.Waiting()
	require.True(t, ok)
	assert.Equal(t, "a", waiting)
}

func TestServer_WaitingPlayerLeaves(t *testing.T) {
	s, ts := newTestServer(t)

	a := dial(t, ts, "random", "a")
	assert.Eventually(t, func() bool {
		_, ok := s.matchmaker.Waiting()
		return ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	assert.Eventually(t, func() bool {
		_, ok := s.matchmaker.Waiting()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestServer_GameAPI(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/create_game", "application/json", nil)
	require.NoError(t, err)
	var created createGameResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, created.GameID, 8)

	resp, err = http.Get(ts.URL + "/api/game/" + created.GameID)
	require.NoError(t, err)
	var snap game.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.GameID, snap.ID)
	assert.Equal(t, game.NewBoard(), snap.Board)
	assert.Empty(t, snap.Players)
	assert.Nil(t, snap.Turn)
	assert.Nil(t, snap.Winner)

	del := func(id string) int {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/game/"+id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, del(created.GameID))
	assert.Equal(t, http.StatusNotFound, del(created.GameID))

	resp, err = http.Get(ts.URL + "/api/game/" + created.GameID)
	require.NoError(t, err)
	var missing errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&missing))
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Game not found", missing.Detail)
}

func TestServer_Health(t *testing.T) {
	s, ts := newTestServer(t)
	s.sessions.Create()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, healthResponse{Status: "ok", Sessions: 1}, health)
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
