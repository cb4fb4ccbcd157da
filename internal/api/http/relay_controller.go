package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"

	"github.com/teamforge/signaling/internal/config"
	"github.com/teamforge/signaling/internal/domain"
	"github.com/teamforge/signaling/internal/registry"
	"github.com/teamforge/signaling/internal/service"
	"github.com/teamforge/signaling/lib/logger/sl"
)

// RelayController terminates the websocket transport. Each connection gets a
// read loop (this handler goroutine) and one writer goroutine draining the
// member's event queue, so a stalled peer never blocks anyone else.
type RelayController struct {
	relay    service.RelayInteractor
	log      *slog.Logger
	cfg      config.Config
	upgrader websocket.Upgrader
}

func NewRelayController(relay service.RelayInteractor, cfg config.Config, log *slog.Logger) *RelayController {
	if log == nil {
		log = slog.Default()
	}
	return &RelayController{
		relay: relay,
		log:   log,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve handles GET /ws. Clients either send a join message after connecting
// or pass ?roomId= to join at connect time.
func (c *RelayController) Serve(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Info("websocket upgrade failed", sl.Err(err))
		return
	}

	member, err := c.relay.Connect(context.Background())
	if err != nil {
		_ = conn.WriteJSON(domain.NewErrorMessage(domain.ErrCodeBadMessage, err.Error()))
		conn.Close()
		return
	}

	member.Mutex.Lock()
	member.Socket = conn
	member.Mutex.Unlock()

	go c.writePump(member, conn)

	defer func() {
		_ = c.relay.Disconnect(context.Background(), member.ID)
		conn.Close()
	}()

	if roomID := ctx.Query("roomId"); roomID != "" {
		if err := c.relay.Join(context.Background(), member.ID, roomID); err != nil {
			c.sendError(member, err)
		}
	}

	c.readPump(member, conn)
}

func (c *RelayController) readPump(member *domain.Member, conn *websocket.Conn) {
	conn.SetReadLimit(c.cfg.Relay.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(c.cfg.Relay.IdleTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.Relay.IdleTimeout))
		return nil
	})

	for {
		var msg domain.SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Malformed JSON on an otherwise healthy connection: tell the
			// sender and keep reading. Anything else is fatal to the
			// connection and triggers disconnect.
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if !member.EnqueueEvent(domain.NewErrorMessage(domain.ErrCodeBadMessage, "invalid message")) {
					c.log.Debug("dropping error reply", slog.String("member_id", member.ID))
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket read failed", slog.String("member_id", member.ID), sl.Err(err))
			}
			return
		}

		switch {
		case msg.IsJoin():
			if err := c.relay.Join(context.Background(), member.ID, msg.TargetRoom()); err != nil {
				c.sendError(member, err)
			}
		case msg.IsSignal():
			if err := c.relay.Relay(context.Background(), member.ID, &msg); err != nil {
				c.sendError(member, err)
			}
		case msg.IsLeave():
			return
		default:
			c.sendError(member, errors.New("unsupported message type: "+string(msg.Type)))
		}
	}
}

func (c *RelayController) writePump(member *domain.Member, conn *websocket.Conn) {
	pingPeriod := c.cfg.Relay.IdleTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-member.Events:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.Relay.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.Relay.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError reports a failure to the offending connection only; errors are
// never broadcast.
func (c *RelayController) sendError(member *domain.Member, err error) {
	code := domain.ErrCodeBadMessage
	switch {
	case errors.Is(err, registry.ErrAlreadyJoined):
		code = domain.ErrCodeAlreadyJoined
	case errors.Is(err, registry.ErrNotJoined):
		code = domain.ErrCodeNotJoined
	}
	if !member.EnqueueEvent(domain.NewErrorMessage(code, err.Error())) {
		c.log.Debug("dropping error reply", slog.String("member_id", member.ID), slog.String("code", code))
	}
}

// ICEServers handles GET /api/webrtc/ice-servers so clients stop hardcoding
// their STUN list.
func (c *RelayController) ICEServers(ctx *gin.Context) {
	servers := make([]webrtc.ICEServer, 0, 1+len(c.cfg.WebRTC.TURNServers))
	if len(c.cfg.WebRTC.STUNServers) > 0 {
		stun := make([]string, len(c.cfg.WebRTC.STUNServers))
		copy(stun, c.cfg.WebRTC.STUNServers)
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	for _, turn := range c.cfg.WebRTC.TURNServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:           turn.URLs,
			Username:       turn.Username,
			Credential:     turn.Credential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"iceServers": servers})
}
