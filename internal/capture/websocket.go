package capture

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/sonoglot/sonoglot/pkg/types"
)

// wireFrame is the JSON frame sent by the browser client. An absent or
// "fragment" type carries a recognition result; "error" and "scroll" frames
// carry control state.
type wireFrame struct {
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	IsFinal     bool    `json:"isFinal"`
	Lang        string  `json:"lang"`
	Confidence  float64 `json:"confidence"`
	TimestampMs int64   `json:"timestampMs"`
	Error       string  `json:"error"`
	AtBottom    bool    `json:"atBottom"`
}

// wsStream is a live capture stream over an accepted WebSocket connection.
// It implements [Stream].
type wsStream struct {
	conn      *websocket.Conn
	fragments chan types.TranscriptFragment
	controls  chan ControlEvent

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewWSStream wraps an accepted WebSocket connection as a fragment [Stream].
// The read loop runs until the client disconnects, ctx is cancelled, or Close
// is called.
func NewWSStream(ctx context.Context, conn *websocket.Conn) Stream {
	s := &wsStream{
		conn:      conn,
		fragments: make(chan types.TranscriptFragment, 64),
		controls:  make(chan ControlEvent, 16),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.readLoop(ctx)
	return s
}

// Fragments returns the channel of incoming transcript fragments.
func (s *wsStream) Fragments() <-chan types.TranscriptFragment { return s.fragments }

// Controls returns the channel of client control events.
func (s *wsStream) Controls() <-chan ControlEvent { return s.controls }

// Close terminates the stream cleanly.
func (s *wsStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "capture closed")
		s.wg.Wait()
	})
	return nil
}

// readLoop receives JSON frames from the client and dispatches fragments and
// control events.
func (s *wsStream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.fragments)
	defer close(s.controls)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation, exit gracefully.
			return
		}

		frag, ctrl := parseFrame(msg)
		switch {
		case frag != nil:
			select {
			case s.fragments <- *frag:
			case <-s.done:
				return
			}
		case ctrl != nil:
			select {
			case s.controls <- *ctrl:
			case <-s.done:
				return
			}
		}
	}
}

// parseFrame classifies one raw client frame. For accepted frames exactly one
// of the returned pointers is non-nil; both are nil for frames that should be
// ignored.
func parseFrame(data []byte) (*types.TranscriptFragment, *ControlEvent) {
	var wf wireFrame
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, nil
	}

	switch wf.Type {
	case "", "fragment":
		if wf.Text == "" {
			return nil, nil
		}
		return &types.TranscriptFragment{
			Text:       wf.Text,
			IsFinal:    wf.IsFinal,
			Lang:       wf.Lang,
			Confidence: wf.Confidence,
			Timestamp:  time.Duration(wf.TimestampMs) * time.Millisecond,
		}, nil

	case "error":
		return nil, &ControlEvent{Kind: errorKind(wf.Error), Detail: wf.Error}

	case "scroll":
		return nil, &ControlEvent{Kind: ControlScroll, AtBottom: wf.AtBottom}
	}
	return nil, nil
}

// errorKind maps Web Speech API error codes to control kinds. Permission
// errors are fatal; every other recognition error is treated like no-speech
// and triggers a restart.
func errorKind(code string) ControlKind {
	switch code {
	case "not-allowed", "service-not-allowed", "permission-denied":
		return ControlPermissionDenied
	}
	return ControlNoSpeech
}
