package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"strategy-backtester/internal/service"

	"github.com/gorilla/websocket"
)

const (
	streamReadLimit = maxBodyBytes
	streamPongWait  = 60 * time.Second
	streamPingEvery = 30 * time.Second
	streamWriteWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// StreamMessage is one server-to-client frame on /api/v1/stream.
// Type is "result" or "error"; Seq echoes the request's position on the
// connection, starting at 1.
type StreamMessage struct {
	Type   string            `json:"type"`
	Seq    int64             `json:"seq"`
	Result *service.Response `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
	Status int               `json:"status,omitempty"`
}

// handleStream accepts backtest requests as JSON text frames and answers
// each with one StreamMessage, in order.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	out := make(chan StreamMessage, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, out)
	}()

	conn.SetReadLimit(streamReadLimit)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	var seq int64
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read failed", "error", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		seq++

		var req service.Request
		if err := json.Unmarshal(msg, &req); err != nil {
			out <- StreamMessage{Type: "error", Seq: seq, Error: "invalid JSON: " + err.Error(), Status: http.StatusBadRequest}
			continue
		}
		resp, err := h.svc.Backtest(ctx, req)
		if err != nil {
			out <- StreamMessage{Type: "error", Seq: seq, Error: err.Error(), Status: StatusFor(err)}
			continue
		}
		out <- StreamMessage{Type: "result", Seq: seq, Result: resp}
	}

	close(out)
	<-done
}

func writePump(conn *websocket.Conn, out <-chan StreamMessage) {
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-out:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("ws write failed", "error", err)
				conn.Close()
				drain(out)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				drain(out)
				return
			}
		}
	}
}

// drain discards queued messages until the reader closes out.
func drain(out <-chan StreamMessage) {
	for range out {
	}
}
