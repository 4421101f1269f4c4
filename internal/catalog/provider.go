package catalog

import (
	"context"
	"fmt"
	"os"

	commonhttp "transmission-api/internal/common/http"
)

// Provider fetches the full catalog from its source of truth.
type Provider interface {
	Fetch(ctx context.Context) ([]Record, error)
	Name() string
}

// HTTPProvider downloads the catalog JSON from a fixed URL.
type HTTPProvider struct {
	url    string
	client *commonhttp.Client
}

func NewHTTPProvider(url string, client *commonhttp.Client) *HTTPProvider {
	return &HTTPProvider{url: url, client: client}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Fetch(ctx context.Context) ([]Record, error) {
	body, err := p.client.GetBytes(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p.url, err)
	}
	return DecodeRecords(body)
}

// FileProvider reads the catalog from a local JSON file.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Fetch(_ context.Context) ([]Record, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	return DecodeRecords(data)
}
