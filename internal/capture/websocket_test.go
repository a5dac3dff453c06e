package capture

import (
	"testing"
	"time"
)

func TestParseFrame_Fragment(t *testing.T) {
	t.Parallel()

	frag, ctrl := parseFrame([]byte(`{"text":"bom dia","isFinal":true,"lang":"pt-BR","confidence":0.93,"timestampMs":1500}`))
	if frag == nil {
		t.Fatal("expected a fragment")
	}
	if ctrl != nil {
		t.Fatalf("unexpected control event: %+v", ctrl)
	}
	if frag.Text != "bom dia" {
		t.Errorf("Text = %q, want 'bom dia'", frag.Text)
	}
	if !frag.IsFinal {
		t.Error("IsFinal should be true")
	}
	if frag.Lang != "pt-BR" {
		t.Errorf("Lang = %q, want pt-BR", frag.Lang)
	}
	if frag.Confidence != 0.93 {
		t.Errorf("Confidence = %v, want 0.93", frag.Confidence)
	}
	if frag.Timestamp != 1500*time.Millisecond {
		t.Errorf("Timestamp = %s, want 1.5s", frag.Timestamp)
	}
}

func TestParseFrame_Interim(t *testing.T) {
	t.Parallel()

	frag, _ := parseFrame([]byte(`{"type":"fragment","text":"bom","isFinal":false,"lang":"pt-BR"}`))
	if frag == nil {
		t.Fatal("expected a fragment")
	}
	if frag.IsFinal {
		t.Error("IsFinal should be false")
	}
}

func TestParseFrame_Ignored(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
	}{
		{"invalid json", `{not json`},
		{"empty text", `{"text":"","isFinal":true}`},
		{"missing text", `{"isFinal":true}`},
		{"unknown type", `{"type":"pause"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			frag, ctrl := parseFrame([]byte(tc.data))
			if frag != nil || ctrl != nil {
				t.Errorf("frame %q should be ignored", tc.data)
			}
		})
	}
}

func TestParseFrame_PermissionErrors(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"not-allowed", "service-not-allowed", "permission-denied"} {
		frag, ctrl := parseFrame([]byte(`{"type":"error","error":"` + code + `"}`))
		if frag != nil {
			t.Fatalf("%s: unexpected fragment", code)
		}
		if ctrl == nil || ctrl.Kind != ControlPermissionDenied {
			t.Errorf("%s: event = %+v, want permission-denied", code, ctrl)
		}
		if ctrl != nil && ctrl.Detail != code {
			t.Errorf("%s: Detail = %q, want the raw code", code, ctrl.Detail)
		}
	}
}

func TestParseFrame_TransientErrors(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"no-speech", "aborted", "network"} {
		_, ctrl := parseFrame([]byte(`{"type":"error","error":"` + code + `"}`))
		if ctrl == nil || ctrl.Kind != ControlNoSpeech {
			t.Errorf("%s: event = %+v, want no-speech", code, ctrl)
		}
	}
}

func TestParseFrame_Scroll(t *testing.T) {
	t.Parallel()

	_, ctrl := parseFrame([]byte(`{"type":"scroll","atBottom":false}`))
	if ctrl == nil || ctrl.Kind != ControlScroll {
		t.Fatalf("event = %+v, want scroll", ctrl)
	}
	if ctrl.AtBottom {
		t.Error("AtBottom should be false")
	}

	_, ctrl = parseFrame([]byte(`{"type":"scroll","atBottom":true}`))
	if ctrl == nil || !ctrl.AtBottom {
		t.Errorf("event = %+v, want AtBottom true", ctrl)
	}
}
