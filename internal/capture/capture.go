// Package capture receives speech-recognition output from browser clients and
// normalises it into transcript fragments.
//
// Recognition itself runs in the browser; the server side of a capture session
// is a WebSocket over which the client pushes interim and final fragments plus
// control frames (recognition errors, scroll position). The package also
// provides the language [Rotator] that drives the recognition language cycle.
package capture

import (
	"github.com/sonoglot/sonoglot/pkg/types"
)

// ControlKind identifies a non-fragment frame from the client.
type ControlKind string

const (
	// ControlPermissionDenied reports that the browser blocked microphone
	// access. Fatal: recording stops and is not retried.
	ControlPermissionDenied ControlKind = "permission-denied"

	// ControlNoSpeech reports that the recognition engine gave up without a
	// result. Transient: the session rotates the recognition language and the
	// client restarts recognition.
	ControlNoSpeech ControlKind = "no-speech"

	// ControlScroll reports the client's scroll position in the caption view.
	ControlScroll ControlKind = "scroll"
)

// ControlEvent is a client frame carrying recognition state instead of speech.
type ControlEvent struct {
	Kind ControlKind

	// AtBottom is set for ControlScroll frames: true when the client sits at
	// the bottom of the caption view.
	AtBottom bool

	// Detail carries the raw recognition error code, when present.
	Detail string
}

// Stream is a live source of transcript fragments from one client.
type Stream interface {
	// Fragments returns the channel of incoming transcript fragments. The
	// channel is closed when the client disconnects or Close is called.
	Fragments() <-chan types.TranscriptFragment

	// Controls returns the channel of client control events. Closed together
	// with Fragments.
	Controls() <-chan ControlEvent

	// Close terminates the stream. Safe to call multiple times.
	Close() error
}
