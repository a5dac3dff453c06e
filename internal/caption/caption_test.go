package caption

import (
	"testing"

	"github.com/sonoglot/sonoglot/pkg/types"
)

func interim(text string) types.TranscriptFragment {
	return types.TranscriptFragment{Text: text, Lang: "pt-BR"}
}

func final(text string) types.TranscriptFragment {
	return types.TranscriptFragment{Text: text, Lang: "pt-BR", IsFinal: true}
}

func TestBoard_InterimOverwritesLiveBlock(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ev1 := b.Apply(interim("bom"))
	ev2 := b.Apply(interim("bom dia"))

	if ev1.Type != EventLive || ev2.Type != EventLive {
		t.Fatalf("event types = %q, %q, want live, live", ev1.Type, ev2.Type)
	}
	if ev1.Block.ID != ev2.Block.ID {
		t.Errorf("interim updates changed block ID: %d then %d", ev1.Block.ID, ev2.Block.ID)
	}
	if ev2.Block.Text != "bom dia" {
		t.Errorf("live text = %q, want 'bom dia'", ev2.Block.Text)
	}

	blocks := b.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 live block", len(blocks))
	}
	if blocks[0].Final {
		t.Error("live block should not be final")
	}
}

func TestBoard_EachFinalProducesOneBlock(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	b.Apply(interim("bom"))
	b.Apply(final("bom dia"))
	b.Apply(interim("tudo"))
	b.Apply(final("tudo bem"))
	b.Apply(final("obrigado"))

	blocks := b.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	for i, blk := range blocks {
		if !blk.Final {
			t.Errorf("blocks[%d] should be final", i)
		}
	}
	if got := b.Transcript(); got != "bom dia tudo bem obrigado" {
		t.Errorf("Transcript() = %q", got)
	}
}

func TestBoard_IDsAreMonotonic(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	b.Apply(final("um"))
	b.Apply(interim("do"))
	b.Apply(final("dois"))
	b.Apply(final("três"))

	blocks := b.Blocks()
	for i := 1; i < len(blocks); i++ {
		if blocks[i].ID <= blocks[i-1].ID {
			t.Errorf("IDs not increasing: %d after %d", blocks[i].ID, blocks[i-1].ID)
		}
	}
}

func TestBoard_FinalWithoutLiveCreatesBlock(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ev := b.Apply(final("direto"))
	if ev.Type != EventFinal {
		t.Fatalf("event type = %q, want final", ev.Type)
	}
	if len(b.Blocks()) != 1 {
		t.Fatalf("got %d blocks, want 1", len(b.Blocks()))
	}
}

func TestBoard_Clear(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	b.Apply(final("um"))
	b.Apply(interim("dois"))
	b.Clear()

	if got := len(b.Blocks()); got != 0 {
		t.Fatalf("got %d blocks after clear, want 0", got)
	}
	if got := b.Transcript(); got != "" {
		t.Errorf("Transcript() = %q, want empty", got)
	}

	// IDs keep increasing after a clear.
	ev := b.Apply(final("novo"))
	if ev.Block.ID < 3 {
		t.Errorf("ID after clear = %d, want >= 3", ev.Block.ID)
	}
}

func TestBoard_SubscribeReceivesEvents(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ch, cancel := b.Subscribe(8)
	defer cancel()

	b.Apply(interim("oi"))
	b.Apply(final("oi pessoal"))

	ev1 := <-ch
	ev2 := <-ch
	if ev1.Type != EventLive {
		t.Errorf("first event = %q, want live", ev1.Type)
	}
	if ev2.Type != EventFinal {
		t.Errorf("second event = %q, want final", ev2.Type)
	}
	if ev2.Block.Text != "oi pessoal" {
		t.Errorf("final text = %q", ev2.Block.Text)
	}
}

func TestBoard_CancelStopsDelivery(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ch, cancel := b.Subscribe(1)
	cancel()

	// Channel is closed after cancel.
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Applying after cancel must not panic.
	b.Apply(final("ainda funciona"))
}

func TestBoard_AttachTranslation(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ev := b.Apply(final("good morning"))
	ch, cancel := b.Subscribe(4)
	defer cancel()

	if !b.AttachTranslation(ev.Block.ID, "bom dia") {
		t.Fatal("AttachTranslation returned false for an existing block")
	}

	update := <-ch
	if update.Type != EventUpdate {
		t.Fatalf("event type = %q, want update", update.Type)
	}
	if update.Block.Translation != "bom dia" {
		t.Errorf("translation = %q", update.Block.Translation)
	}
	// The original text stays untouched.
	if update.Block.Text != "good morning" {
		t.Errorf("text = %q, want original", update.Block.Text)
	}

	blocks := b.Blocks()
	if blocks[0].Translation != "bom dia" {
		t.Errorf("stored translation = %q", blocks[0].Translation)
	}
}

func TestBoard_AttachSummaryIndependentOfTranslation(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ev := b.Apply(final("uma fala longa sobre o orçamento"))
	b.AttachSummary(ev.Block.ID, "orçamento")
	b.AttachTranslation(ev.Block.ID, "a long speech about the budget")

	blk := b.Blocks()[0]
	if blk.Summary != "orçamento" {
		t.Errorf("summary = %q", blk.Summary)
	}
	if blk.Translation != "a long speech about the budget" {
		t.Errorf("translation = %q", blk.Translation)
	}
}

func TestBoard_AttachToMissingBlock(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	b.Apply(final("um"))
	b.Clear()

	if b.AttachTranslation(1, "one") {
		t.Error("attach to a cleared block should return false")
	}
}

func TestBoard_FollowModeStampsEvents(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	if !b.Following() {
		t.Fatal("a new board should start in follow mode")
	}
	if ev := b.Apply(interim("oi")); !ev.Following {
		t.Error("event should carry Following=true")
	}

	b.SetFollowing(false)
	if ev := b.Apply(final("oi pessoal")); ev.Following {
		t.Error("event should carry Following=false after scroll-away")
	}

	b.SetFollowing(true)
	if ev := b.Apply(final("de novo")); !ev.Following {
		t.Error("event should carry Following=true after resume")
	}
}

func TestBoard_NotifyErrorAndLanguage(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.NotifyError("acesso ao microfone negado")
	b.NotifyLanguage("en-US")

	ev := <-ch
	if ev.Type != EventError || ev.Message != "acesso ao microfone negado" {
		t.Errorf("first event = %+v, want an error with message", ev)
	}
	if ev.Block.ID != 0 {
		t.Errorf("error event carries block %d, want none", ev.Block.ID)
	}

	ev = <-ch
	if ev.Type != EventLanguage || ev.Message != "en-US" {
		t.Errorf("second event = %+v, want a language change", ev)
	}
}

func TestBoard_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()
	b := NewBoard()

	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Apply(final("um"))
	b.Apply(final("dois"))
	b.Apply(final("três"))

	// Buffer of one: only the first event is retained; the board itself has
	// all three blocks.
	<-ch
	if got := len(b.Blocks()); got != 3 {
		t.Errorf("got %d blocks, want 3", got)
	}
}
