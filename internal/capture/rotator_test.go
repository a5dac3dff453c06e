package capture

import "testing"

func TestNewRotator_Empty(t *testing.T) {
	t.Parallel()
	if _, err := NewRotator(nil); err == nil {
		t.Fatal("expected error for empty language list, got nil")
	}
}

func TestRotator_Cycle(t *testing.T) {
	t.Parallel()
	r, err := NewRotator([]string{"pt-BR", "en-US", "es-ES"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.Current(); got != "pt-BR" {
		t.Errorf("Current() = %q, want pt-BR", got)
	}
	if got := r.Next(); got != "en-US" {
		t.Errorf("Next() = %q, want en-US", got)
	}
	if got := r.Next(); got != "es-ES" {
		t.Errorf("Next() = %q, want es-ES", got)
	}
	// Wraps back to the start.
	if got := r.Next(); got != "pt-BR" {
		t.Errorf("Next() = %q, want pt-BR after wrap", got)
	}
	if got := r.Current(); got != "pt-BR" {
		t.Errorf("Current() = %q, want pt-BR after wrap", got)
	}
}

func TestRotator_SingleLanguage(t *testing.T) {
	t.Parallel()
	r, err := NewRotator([]string{"pt-BR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Next(); got != "pt-BR" {
		t.Errorf("Next() = %q, want pt-BR", got)
	}
}

func TestRotator_CopiesInput(t *testing.T) {
	t.Parallel()
	langs := []string{"pt-BR", "en-US"}
	r, err := NewRotator(langs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	langs[0] = "mutated"
	if got := r.Current(); got != "pt-BR" {
		t.Errorf("Current() = %q, want pt-BR after caller mutation", got)
	}
}
