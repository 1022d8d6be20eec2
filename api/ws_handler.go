package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lithammer/shortuuid/v4"
	"github.com/minhvu/taskhive-BE/internal/hub"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// inboundMessage is the one message type clients send: a room subscription.
type inboundMessage struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// wsSession adapts one websocket connection to hub.Session. Send may be
// called from fan-out, broadcast, and the ping loop concurrently, so writes
// are serialized.
type wsSession struct {
	id        string
	recipient string
	conn      *websocket.Conn
	writeMu   sync.Mutex
}

func (s *wsSession) ID() string        { return s.id }
func (s *wsSession) Recipient() string { return s.recipient }

func (s *wsSession) Send(_ context.Context, msg hub.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

func (s *wsSession) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *wsSession) Close() error {
	return s.conn.Close()
}

// serveChannelSocket upgrades the request to a websocket session for the
// channel named in the path, registers it, and replays any notifications
// that accumulated while the recipient was offline.
func (server *Server) serveChannelSocket(c *gin.Context) {
	payload, err := server.tokenMaker.VerifyToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse(err))
		return
	}

	channelID := c.Param("channelID")
	if channelID == "" {
		c.JSON(http.StatusBadRequest, errorResponse(errors.New("channel ID is required")))
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkWebsocketOrigin,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := &wsSession{
		id:        shortuuid.New(),
		recipient: payload.Subject,
		conn:      conn,
	}

	rooms := []string{channelID}
	server.registry.Join(sess, rooms)
	defer func() {
		server.registry.Leave(sess.id)
		conn.Close()
	}()

	// Catch up on notifications created while the recipient was offline.
	if _, err := server.notifier.DeliverPending(c.Request.Context(), sess); err != nil {
		log.Error().Err(err).Str("session_id", sess.id).Msg("failed to deliver pending notifications")
	}

	// Keep the connection alive; a missed pong ends the read loop below.
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sess.ping(); err != nil {
					return
				}
			case <-stopPing:
				return
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session_id", sess.id).Msg("websocket closed unexpectedly")
			}
			return
		}

		if msg.Action != "subscribe" || len(msg.Channels) == 0 {
			continue
		}

		// Re-join with the union of rooms; Join replaces the room set
		// without duplicating the session entry.
		rooms = appendMissing(rooms, msg.Channels)
		server.registry.Join(sess, rooms)
	}
}

func (server *Server) checkWebsocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range server.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func appendMissing(rooms []string, extra []string) []string {
	seen := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		seen[room] = struct{}{}
	}
	for _, room := range extra {
		if _, ok := seen[room]; !ok {
			rooms = append(rooms, room)
		}
	}
	return rooms
}
