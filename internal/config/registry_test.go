package config_test

import (
	"errors"
	"testing"

	"github.com/sonoglot/sonoglot/internal/config"
	"github.com/sonoglot/sonoglot/pkg/provider/docparse"
	docparsemock "github.com/sonoglot/sonoglot/pkg/provider/docparse/mock"
	"github.com/sonoglot/sonoglot/pkg/provider/llm"
	llmmock "github.com/sonoglot/sonoglot/pkg/provider/llm/mock"
)

func TestRegistry_CreateLLM(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	var gotEntry config.ProviderEntry
	reg.RegisterLLM("fake", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return &llmmock.Provider{}, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "fake", Model: "test-model"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("CreateLLM returned nil provider")
	}
	if gotEntry.Model != "test-model" {
		t.Errorf("factory received model %q, want test-model", gotEntry.Model)
	}
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
	_, err = reg.CreateDocparse(config.ProviderEntry{Name: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_OverwriteRegistration(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	first := &docparsemock.Provider{}
	second := &docparsemock.Provider{}
	reg.RegisterDocparse("fileextract", func(config.ProviderEntry) (docparse.Provider, error) {
		return first, nil
	})
	reg.RegisterDocparse("fileextract", func(config.ProviderEntry) (docparse.Provider, error) {
		return second, nil
	})

	p, err := reg.CreateDocparse(config.ProviderEntry{Name: "fileextract"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != second {
		t.Error("later registration should win")
	}
}
