package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/petrijr/nodeflow/pkg/api"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	wsBufferSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the connection and streams the run's events to
// the client. The stream for a run can be claimed exactly once; a second
// subscriber, or a subscriber for an unknown run, is rejected with a
// policy-violation close frame.
func (s *Server) handleWebSocket(c *gin.Context) {
	runID := c.Param("runID")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			slog.Any("error", err))
		return
	}

	stream, err := s.engine.StreamEvents(runID)
	if err != nil {
		msg := websocket.FormatCloseMessage(
			websocket.ClosePolicyViolation,
			fmt.Sprintf("no event stream for run %s", runID),
		)
		_ = conn.WriteControl(
			websocket.CloseMessage, msg, time.Now().Add(writeWait),
		)
		_ = conn.Close()
		return
	}

	client := &wsClient{conn: conn, stream: stream}
	go client.run()
}

type wsClient struct {
	conn   *websocket.Conn
	stream api.EventStream
}

func (c *wsClient) run() {
	defer func() {
		c.stream.Close()
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Reader is only consumed to detect client disconnects.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events := c.stream.Events()
	for {
		select {
		case <-disconnected:
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(
				websocket.PingMessage, nil,
			); err != nil {
				return
			}

		case event, ok := <-events:
			if !ok {
				c.sendClose(websocket.CloseNormalClosure, "run finished")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				slog.Error("WebSocket write failed",
					slog.Any("error", err))
				return
			}
		}
	}
}

func (c *wsClient) sendClose(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(
		websocket.CloseMessage, msg, time.Now().Add(writeWait),
	)
}
