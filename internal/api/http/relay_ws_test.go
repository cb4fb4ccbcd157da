package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamforge/signaling/internal/config"
	"github.com/teamforge/signaling/internal/domain"
	"github.com/teamforge/signaling/internal/registry"
	"github.com/teamforge/signaling/internal/service"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.RelayService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Env: "local",
		WebRTC: config.WebRTCConfig{
			STUNServers: []string{"stun:stun.example.org:3478"},
		},
		Relay: config.RelayConfig{
			SendQueueSize:   64,
			IdleTimeout:     60 * time.Second,
			WriteTimeout:    5 * time.Second,
			MaxMessageBytes: 64 * 1024,
		},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	relayService := service.NewRelayService(registry.New(), log, cfg.Relay.SendQueueSize)

	router := SetupRouter(
		NewRelayController(relayService, cfg, log),
		NewRoomController(relayService),
	)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, relayService
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) domain.SignalMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg domain.SignalMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForMembers(t *testing.T, svc *service.RelayService, roomID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		room, err := svc.Room(context.Background(), roomID)
		if err != nil {
			return want == 0
		}
		return room.MemberCount() == want
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSignalRelayedBetweenRoomMembers(t *testing.T) {
	ts, svc := newTestServer(t)

	a := dialWS(t, ts, "/ws")
	require.NoError(t, a.WriteJSON(map[string]string{"type": "join", "roomId": "r1"}))
	waitForMembers(t, svc, "r1", 1)

	// Joining via query string exercises the socket.io-style connect flow.
	b := dialWS(t, ts, "/ws?roomId=r1")
	waitForMembers(t, svc, "r1", 2)

	joined := readEnvelope(t, a)
	assert.Equal(t, domain.SignalTypePeerJoined, joined.Type)
	assert.NotEmpty(t, joined.SenderID)

	payload := `{"type":"offer","sdp":"X"}`
	require.NoError(t, a.WriteJSON(map[string]json.RawMessage{
		"type":    json.RawMessage(`"signal"`),
		"roomId":  json.RawMessage(`"r1"`),
		"payload": json.RawMessage(payload),
	}))

	got := readEnvelope(t, b)
	assert.Equal(t, domain.SignalTypeSignal, got.Type)
	assert.Equal(t, "r1", got.RoomID)
	assert.NotEmpty(t, got.SenderID)
	assert.JSONEq(t, payload, string(got.Payload))

	b.Close()
	left := readEnvelope(t, a)
	assert.Equal(t, domain.SignalTypePeerLeft, left.Type)
	assert.Equal(t, joined.SenderID, left.SenderID)
}

func TestDiscreteOfferBodyForwardedVerbatim(t *testing.T) {
	ts, svc := newTestServer(t)

	a := dialWS(t, ts, "/ws?roomId=r1")
	waitForMembers(t, svc, "r1", 1)
	b := dialWS(t, ts, "/ws?roomId=r1")
	waitForMembers(t, svc, "r1", 2)
	readEnvelope(t, a) // peer-joined

	require.NoError(t, a.WriteJSON(map[string]any{
		"type":  "offer",
		"room":  "r1",
		"offer": map[string]string{"type": "offer", "sdp": "v=0 X"},
	}))

	got := readEnvelope(t, b)
	assert.Equal(t, domain.SignalTypeOffer, got.Type)
	assert.Equal(t, "r1", got.RoomID)
	assert.NotEmpty(t, got.SenderID)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0 X"}`, string(got.Offer))

	require.NoError(t, b.WriteJSON(map[string]any{
		"type":      "ice-candidate",
		"room":      "r1",
		"candidate": map[string]string{"candidate": "candidate:0", "sdpMid": "0"},
	}))

	cand := readEnvelope(t, a)
	assert.Equal(t, domain.SignalTypeICECandidate, cand.Type)
	assert.JSONEq(t, `{"candidate":"candidate:0","sdpMid":"0"}`, string(cand.Candidate))
}

func TestSignalBeforeJoinErrorsToSenderOnly(t *testing.T) {
	ts, svc := newTestServer(t)

	a := dialWS(t, ts, "/ws?roomId=r1")
	waitForMembers(t, svc, "r1", 1)

	c := dialWS(t, ts, "/ws")
	require.NoError(t, c.WriteJSON(map[string]any{
		"type":    "signal",
		"roomId":  "r1",
		"payload": map[string]string{"sdp": "x"},
	}))

	errMsg := readEnvelope(t, c)
	assert.Equal(t, domain.SignalTypeError, errMsg.Type)
	require.NotNil(t, errMsg.Error)
	assert.Equal(t, domain.ErrCodeNotJoined, errMsg.Error.Code)

	// The joined member saw nothing.
	require.NoError(t, a.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var msg domain.SignalMessage
	err := a.ReadJSON(&msg)
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected read timeout, got %v / %v", msg, err)
}

func TestDoubleJoinRejectedOverWire(t *testing.T) {
	ts, svc := newTestServer(t)

	a := dialWS(t, ts, "/ws")
	require.NoError(t, a.WriteJSON(map[string]string{"type": "join", "roomId": "r1"}))
	waitForMembers(t, svc, "r1", 1)

	require.NoError(t, a.WriteJSON(map[string]string{"type": "join", "roomId": "r1"}))
	errMsg := readEnvelope(t, a)
	assert.Equal(t, domain.SignalTypeError, errMsg.Type)
	require.NotNil(t, errMsg.Error)
	assert.Equal(t, domain.ErrCodeAlreadyJoined, errMsg.Error.Code)

	room, err := svc.Room(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, room.MemberCount())
}

func TestTransportCloseCleansUpRoom(t *testing.T) {
	ts, svc := newTestServer(t)

	a := dialWS(t, ts, "/ws?roomId=r1")
	waitForMembers(t, svc, "r1", 1)

	a.Close()
	waitForMembers(t, svc, "r1", 0)
}

func TestLeaveMessageClosesConnection(t *testing.T) {
	ts, svc := newTestServer(t)

	a := dialWS(t, ts, "/ws?roomId=r1")
	waitForMembers(t, svc, "r1", 1)

	require.NoError(t, a.WriteJSON(map[string]string{"type": "leave"}))
	waitForMembers(t, svc, "r1", 0)
}

func TestRoomsEndpoint(t *testing.T) {
	ts, svc := newTestServer(t)

	dialWS(t, ts, "/ws?roomId=r1")
	waitForMembers(t, svc, "r1", 1)

	resp, err := http.Get(ts.URL + "/api/rooms/r1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Room struct {
			ID          string `json:"id"`
			MemberCount int    `json:"member_count"`
		} `json:"room"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "r1", body.Room.ID)
	assert.Equal(t, 1, body.Room.MemberCount)

	missing, err := http.Get(ts.URL + "/api/rooms/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestICEServersEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/webrtc/ice-servers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "stun:stun.example.org:3478")
}
