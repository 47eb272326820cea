package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Kelmain/deep-search/tools/websearch/models"
	"github.com/Kelmain/deep-search/utils"
)

// Search uses the DuckDuckGo Instant Answer API. No API key required.
type Search struct{}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.duckduckgo.com/api
	url := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1&skip_disambig=1", utils.UrlQuery(q))
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo search: status %d", resp.StatusCode)
	}
	var raw struct {
		Heading       string         `json:"Heading"`
		AbstractText  string         `json:"AbstractText"`
		AbstractURL   string         `json:"AbstractURL"`
		RelatedTopics []relatedTopic `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if raw.AbstractText != "" {
		out = append(out, models.Result{Title: raw.Heading, URL: raw.AbstractURL, Snippet: raw.AbstractText})
	}
	out = appendTopics(out, raw.RelatedTopics, k)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// appendTopics flattens nested topic groups until k results are collected.
func appendTopics(out []models.Result, topics []relatedTopic, k int) []models.Result {
	for _, t := range topics {
		if len(out) >= k {
			break
		}
		if len(t.Topics) > 0 {
			out = appendTopics(out, t.Topics, k)
			continue
		}
		if t.Text == "" {
			continue
		}
		out = append(out, models.Result{Title: t.Text, URL: t.FirstURL, Snippet: t.Text})
	}
	return out
}
