package websearch

import (
	"context"
	"errors"

	"github.com/Kelmain/deep-search/tools/websearch/brave"
	"github.com/Kelmain/deep-search/tools/websearch/duckduckgo"
	"github.com/Kelmain/deep-search/tools/websearch/models"
	"github.com/Kelmain/deep-search/tools/websearch/serper"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider     Provider = "serper"
	BraveProvider      Provider = "brave"
	DuckDuckGoProvider Provider = "duckduckgo"
)

var ErrUnsupportedProvider = errors.New("unsupported web search provider")

// NewWebSearcher returns a provider implementation. DuckDuckGo needs no key.
func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	case DuckDuckGoProvider:
		return duckduckgo.Search{}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
