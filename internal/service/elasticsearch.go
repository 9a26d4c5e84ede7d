package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"

	"github.com/toolrelay/toolrelay/internal/tools"
)

const snippetLength = 300

// ElasticsearchService is a search_web backend over a self-hosted index.
type ElasticsearchService struct {
	client *elasticsearch.Client
	index  string
	fields []string
}

// NewElasticsearchService creates an ES client using go-elasticsearch/v8
func NewElasticsearchService(scheme, host string, port int, user, password string, verifyCerts bool, maxRetries int, index string, fields []string) (*ElasticsearchService, error) {
	addr := fmt.Sprintf("%s://%s:%d", scheme, host, port)

	cfg := elasticsearch.Config{
		Addresses:  []string{addr},
		MaxRetries: maxRetries,
	}
	if user != "" {
		cfg.Username = user
		cfg.Password = password
	}
	if !verifyCerts {
		cfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - user explicitly disabled cert verification
			},
		}
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	return &ElasticsearchService{client: client, index: index, fields: fields}, nil
}

// TestConnection pings the cluster
func (s *ElasticsearchService) TestConnection(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match query over the configured fields. Documents are
// expected to carry title, url and content (or snippet) fields.
func (s *ElasticsearchService) Search(ctx context.Context, query string, limit int) ([]tools.SearchHit, error) {
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": s.fields,
			},
		},
		"_source": []string{"title", "url", "content", "snippet"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("Search failed: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(bodyBytes)),
	}
	res, err := s.client.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("Search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.New("Search request failed")
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("Search failed: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("Search failed: invalid response")
	}
	return parseSearchHits(raw), nil
}

func parseSearchHits(raw []byte) []tools.SearchHit {
	hits := []tools.SearchHit{}
	gjson.GetBytes(raw, "hits.hits").ForEach(func(_, h gjson.Result) bool {
		src := h.Get("_source")
		snippet := src.Get("snippet").String()
		if snippet == "" {
			snippet = truncate(src.Get("content").String(), snippetLength)
		}
		title := src.Get("title").String()
		if title == "" {
			title = h.Get("_id").String()
		}
		hits = append(hits, tools.SearchHit{
			Title:   title,
			Snippet: snippet,
			URL:     src.Get("url").String(),
			Source:  "elasticsearch",
		})
		return true
	})
	return hits
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
