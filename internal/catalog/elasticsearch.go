package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchProvider scans an index in document order.
type ElasticsearchProvider struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewElasticsearchProvider(client *elasticsearch.Client, index string, size int) *ElasticsearchProvider {
	if size <= 0 {
		size = 10000
	}
	return &ElasticsearchProvider{client: client, index: index, size: size}
}

func (p *ElasticsearchProvider) Name() string { return "elasticsearch" }

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (p *ElasticsearchProvider) Fetch(ctx context.Context) ([]Record, error) {
	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.index),
		p.client.Search.WithBody(strings.NewReader(`{"query":{"match_all":{}},"sort":["_doc"]}`)),
		p.client.Search.WithSize(p.size),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", p.index, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}

	records := make([]Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		records = append(records, hit.Source)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}
	return records, nil
}
