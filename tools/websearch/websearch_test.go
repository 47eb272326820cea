package websearch

import (
	"errors"
	"testing"
)

func TestNewWebSearcher(t *testing.T) {
	if _, err := NewWebSearcher(DuckDuckGoProvider, ""); err != nil {
		t.Fatalf("duckduckgo should not need a key: %v", err)
	}
	if _, err := NewWebSearcher(BraveProvider, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewWebSearcher(Provider("bing"), ""); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}
