package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 10
)

type SearchArgs struct {
	Query      string  `json:"query" jsonschema_description:"The search query"`
	NumResults float64 `json:"num_results,omitempty" jsonschema:"default=5" jsonschema_description:"Number of results to return (1-10)"`
}

type SearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source,omitempty"`
}

type SearchResults struct {
	Query        string      `json:"query"`
	Results      []SearchHit `json:"results"`
	TotalResults int         `json:"total_results"`
}

// Searcher is a search backend returning at most limit hits.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// SearchTool exposes a Searcher as the search_web tool.
func SearchTool(searcher Searcher) Tool {
	return Tool{
		Name:        "search_web",
		Description: "Search the web for current information",
		Parameters:  GenerateSchema[SearchArgs](),
		Execute: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			args, err := decodeArgs[SearchArgs](input)
			if err != nil {
				return nil, err
			}
			query := strings.TrimSpace(args.Query)
			if query == "" {
				return nil, errors.New("query is required")
			}

			hits, err := searcher.Search(ctx, query, clampResults(args.NumResults))
			if err != nil {
				return nil, err
			}
			if hits == nil {
				hits = []SearchHit{}
			}
			return &SearchResults{Query: query, Results: hits, TotalResults: len(hits)}, nil
		},
	}
}

func clampResults(n float64) int {
	if n <= 0 {
		return defaultSearchResults
	}
	if n < 1 {
		return 1
	}
	if n > maxSearchResults {
		return maxSearchResults
	}
	return int(n)
}

// DuckDuckGo queries the DuckDuckGo Instant Answer API.
type DuckDuckGo struct {
	client  *http.Client
	baseURL string
}

func NewDuckDuckGo(client *http.Client, baseURL string) *DuckDuckGo {
	return &DuckDuckGo{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Search returns the abstract (when present) followed by related topics
// that carry both text and a URL, up to limit hits in total.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1", d.baseURL, url.QueryEscape(query))
	body, status, err := httpGet(ctx, d.client, endpoint)
	if err != nil {
		return nil, fmt.Errorf("Search failed: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, errors.New("Search request failed")
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("Search failed: invalid response")
	}

	doc := gjson.ParseBytes(body)
	var hits []SearchHit

	if abstract := doc.Get("Abstract").String(); abstract != "" {
		title := doc.Get("Heading").String()
		if title == "" {
			title = "Summary"
		}
		hits = append(hits, SearchHit{
			Title:   title,
			Snippet: abstract,
			URL:     doc.Get("AbstractURL").String(),
			Source:  doc.Get("AbstractSource").String(),
		})
	}

	// The topic window is cut before filtering, so grouped topics without
	// Text still consume a slot.
	remaining := limit - len(hits)
	topics := doc.Get("RelatedTopics").Array()
	if remaining < len(topics) {
		if remaining < 0 {
			remaining = 0
		}
		topics = topics[:remaining]
	}
	for _, topic := range topics {
		text := topic.Get("Text").String()
		link := topic.Get("FirstURL").String()
		if text == "" || link == "" {
			continue
		}
		title, _, _ := strings.Cut(text, " - ")
		hits = append(hits, SearchHit{Title: title, Snippet: text, URL: link})
	}
	return hits, nil
}
