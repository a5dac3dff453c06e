// Package caption maintains the live caption board for a transcription session.
//
// The board holds an ordered list of finalized caption blocks plus at most one
// live block that interim recognition results keep overwriting. Every final
// fragment produces exactly one finalized block. Subscribers receive typed
// events for each board change and can replay the current state on connect.
package caption

import (
	"strings"
	"sync"
	"time"

	"github.com/sonoglot/sonoglot/pkg/types"
)

// EventType identifies what changed on the board.
type EventType string

const (
	// EventLive signals that the live block was created or its text replaced.
	EventLive EventType = "live"

	// EventFinal signals that a block was finalized.
	EventFinal EventType = "final"

	// EventClear signals that the whole board was cleared.
	EventClear EventType = "clear"

	// EventUpdate signals that an asynchronous result (translation or
	// summary) was attached to an already-finalized block.
	EventUpdate EventType = "update"

	// EventError signals a fatal capture error; Message carries the
	// user-visible text.
	EventError EventType = "error"

	// EventLanguage signals that the recognition language changed; Message
	// carries the new language code and the client restarts recognition
	// with it.
	EventLanguage EventType = "language"
)

// Block is a single caption block.
type Block struct {
	// ID is unique per board and strictly increasing in creation order.
	ID uint64 `json:"id"`

	// Text is the caption text. For the live block it is the latest interim
	// result; for finalized blocks it never changes again.
	Text string `json:"text"`

	// Lang is the recognition language of the block.
	Lang string `json:"lang"`

	// Final reports whether the block has been finalized.
	Final bool `json:"final"`

	// Translation is attached asynchronously after finalization. On failure
	// it carries an inline error marker instead of translated text; the
	// original Text is never touched.
	Translation string `json:"translation,omitempty"`

	// Summary is attached asynchronously after finalization, independently
	// of Translation.
	Summary string `json:"summary,omitempty"`

	// CreatedAt is when the block first appeared.
	CreatedAt time.Time `json:"createdAt"`
}

// Event describes one board change delivered to subscribers.
type Event struct {
	Type  EventType `json:"type"`
	Block Block     `json:"block,omitempty"`

	// Message carries event text for error and language events.
	Message string `json:"message,omitempty"`

	// Following reports whether caption auto-advance was active when the
	// event fired.
	Following bool `json:"following"`
}

// Board is the caption board for one session. It is safe for concurrent use.
type Board struct {
	mu        sync.Mutex
	blocks    []Block
	live      *Block
	nextID    uint64
	following bool

	subs    map[int]chan Event
	nextSub int
}

// NewBoard creates an empty caption board with follow mode on.
func NewBoard() *Board {
	return &Board{following: true, subs: make(map[int]chan Event)}
}

// Apply folds a transcript fragment into the board and returns the resulting
// event. Interim fragments overwrite the live block (creating it on first
// use); final fragments finalize it. Applying a final fragment when no live
// block exists creates and finalizes a block in one step.
func (b *Board) Apply(frag types.TranscriptFragment) Event {
	b.mu.Lock()

	var ev Event
	if frag.IsFinal {
		blk := b.takeLiveLocked(frag)
		blk.Text = frag.Text
		blk.Final = true
		b.blocks = append(b.blocks, blk)
		ev = Event{Type: EventFinal, Block: blk}
	} else {
		if b.live == nil {
			blk := b.newBlockLocked(frag)
			b.live = &blk
		}
		b.live.Text = frag.Text
		if frag.Lang != "" {
			b.live.Lang = frag.Lang
		}
		ev = Event{Type: EventLive, Block: *b.live}
	}
	ev.Following = b.following

	b.mu.Unlock()
	b.broadcast(ev)
	return ev
}

// takeLiveLocked returns the current live block (detaching it) or a fresh
// block when none is live.
func (b *Board) takeLiveLocked(frag types.TranscriptFragment) Block {
	if b.live != nil {
		blk := *b.live
		b.live = nil
		if frag.Lang != "" {
			blk.Lang = frag.Lang
		}
		return blk
	}
	return b.newBlockLocked(frag)
}

// newBlockLocked allocates a block with the next monotonic ID.
func (b *Board) newBlockLocked(frag types.TranscriptFragment) Block {
	b.nextID++
	return Block{
		ID:        b.nextID,
		Lang:      frag.Lang,
		CreatedAt: time.Now(),
	}
}

// AttachTranslation sets the translation of the finalized block with the
// given ID and notifies subscribers. Returns false when no such block exists
// (e.g. the board was cleared while the translation was in flight).
func (b *Board) AttachTranslation(id uint64, text string) bool {
	return b.attach(id, func(blk *Block) { blk.Translation = text })
}

// AttachSummary sets the summary of the finalized block with the given ID and
// notifies subscribers. Returns false when no such block exists.
func (b *Board) AttachSummary(id uint64, text string) bool {
	return b.attach(id, func(blk *Block) { blk.Summary = text })
}

func (b *Board) attach(id uint64, set func(*Block)) bool {
	b.mu.Lock()
	for i := range b.blocks {
		if b.blocks[i].ID == id {
			set(&b.blocks[i])
			ev := Event{Type: EventUpdate, Block: b.blocks[i]}
			b.mu.Unlock()
			b.broadcast(ev)
			return true
		}
	}
	b.mu.Unlock()
	return false
}

// SetFollowing turns caption auto-advance on or off. The client reports
// scroll-away from the bottom to suspend it and bottom proximity to resume;
// subsequent events carry the flag so the view knows whether to advance.
func (b *Board) SetFollowing(on bool) {
	b.mu.Lock()
	b.following = on
	b.mu.Unlock()
}

// Following reports whether caption auto-advance is active.
func (b *Board) Following() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.following
}

// NotifyError broadcasts a fatal capture error to subscribers.
func (b *Board) NotifyError(msg string) {
	b.broadcast(Event{Type: EventError, Message: msg})
}

// NotifyLanguage broadcasts a recognition language change to subscribers.
func (b *Board) NotifyLanguage(lang string) {
	b.broadcast(Event{Type: EventLanguage, Message: lang})
}

// Clear removes all blocks, including the live one, and notifies subscribers.
func (b *Board) Clear() {
	b.mu.Lock()
	b.blocks = nil
	b.live = nil
	b.mu.Unlock()
	b.broadcast(Event{Type: EventClear})
}

// Blocks returns a snapshot of the finalized blocks followed by the live
// block, if any.
func (b *Board) Blocks() []Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Block, len(b.blocks), len(b.blocks)+1)
	copy(out, b.blocks)
	if b.live != nil {
		out = append(out, *b.live)
	}
	return out
}

// Transcript returns the finalized caption text joined with single spaces.
// The live block is excluded.
func (b *Board) Transcript() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := make([]string, 0, len(b.blocks))
	for _, blk := range b.blocks {
		if t := strings.TrimSpace(blk.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Subscribe registers a new event subscriber and returns its channel together
// with a cancel function. Events are dropped for subscribers whose channel
// buffer is full.
func (b *Board) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// broadcast delivers ev to all subscribers without blocking, stamping the
// current follow flag.
func (b *Board) broadcast(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev.Following = b.following
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it will resync from Blocks on reconnect.
		}
	}
}
