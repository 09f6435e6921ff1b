package simapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"finsim/internal/sim"
)

const (
	writeWait  = 2 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST API is already open CORS; the stream follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection and pushes a StateJSON frame for
// every session mutation until either side goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session", sess.ID(), "error", err)
		return
	}

	states := sess.Subscribe()
	go s.readPump(conn, sess, states)
	s.writePump(conn, sess, states)
}

// readPump drains client frames to keep pong handling alive. The stream is
// one-way, so incoming payloads are discarded; a read error means the
// client is gone.
func (s *Server) readPump(conn *websocket.Conn, sess *sim.Session, states chan sim.State) {
	defer func() {
		sess.Unsubscribe(states)
		conn.Close()
	}()

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read", "session", sess.ID(), "error", err)
			}
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, sess *sim.Session, states chan sim.State) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case st, ok := <-states:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Session closed underneath us.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(convertState(st)); err != nil {
				s.log.Debug("websocket write", "session", sess.ID(), "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
