package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/sonoglot/sonoglot/internal/caption"
	"github.com/sonoglot/sonoglot/internal/capture"
	"github.com/sonoglot/sonoglot/internal/match"
)

// captionEventBuffer sizes each WebSocket subscriber's event channel. Slow
// clients drop events rather than stalling the board.
const captionEventBuffer = 64

// wsFrame is the envelope for every server-to-client caption socket message.
type wsFrame struct {
	Type      string          `json:"type"`
	Block     *caption.Block  `json:"block,omitempty"`
	Blocks    []caption.Block `json:"blocks,omitempty"`
	Analysis  *match.Result   `json:"analysis,omitempty"`
	Message   string          `json:"message,omitempty"`
	Following bool            `json:"following"`
}

// handleCaptions upgrades the connection to the caption WebSocket. The client
// sends transcript fragments; the server folds them into the session board and
// pushes a snapshot, then board events and context-analysis results.
func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("gateway: websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "caption stream closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.deps.Metrics.CaptionSubscribers.Add(ctx, 1)
	defer s.deps.Metrics.CaptionSubscribers.Add(ctx, -1)

	stream := capture.NewWSStream(ctx, conn)
	defer stream.Close()

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		sess.Consume(ctx, stream)
	}()

	events, unsubscribe := sess.Board().Subscribe(captionEventBuffer)
	defer unsubscribe()

	// Replay the current board so a reconnecting client starts in sync.
	snapshot := wsFrame{
		Type:      "snapshot",
		Blocks:    sess.Board().Blocks(),
		Following: sess.Board().Following(),
	}
	if err := s.writeFrame(ctx, conn, snapshot); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-consumeDone:
			conn.Close(websocket.StatusNormalClosure, "capture ended")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			frame := wsFrame{Type: string(ev.Type), Message: ev.Message, Following: ev.Following}
			// Error and language events carry no block.
			if ev.Block.ID != 0 {
				blk := ev.Block
				frame.Block = &blk
			}
			if err := s.writeFrame(ctx, conn, frame); err != nil {
				return
			}
		case res := <-sess.Analyses():
			if err := s.writeFrame(ctx, conn, wsFrame{Type: "analysis", Analysis: &res}); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, frame wsFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
