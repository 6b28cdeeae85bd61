package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// maxTemplateSize — верхняя граница размера шаблона, который читается в память.
const maxTemplateSize = 1 << 20

// TemplateFetcher получает тело шаблона по templateLocation.
//
// Поддерживаемые адреса:
//   - http:// и https:// — GET-запрос
//   - file:// и путь без схемы — чтение локального файла
type TemplateFetcher struct {
	client *http.Client
}

// NewTemplateFetcher создаёт TemplateFetcher. nil client — клиент с таймаутом 30s.
func NewTemplateFetcher(client *http.Client) *TemplateFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &TemplateFetcher{client: client}
}

// Fetch возвращает тело шаблона.
func (f *TemplateFetcher) Fetch(ctx context.Context, location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: parse location: %v", ErrTemplateFetch, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, location)
	case "file":
		return readTemplateFile(u.Path)
	case "":
		return readTemplateFile(location)
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrTemplateFetch, u.Scheme)
	}
}

func (f *TemplateFetcher) fetchHTTP(ctx context.Context, location string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrTemplateFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d from %s", ErrTemplateFetch, resp.StatusCode, location)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateSize))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrTemplateFetch, err)
	}
	return string(body), nil
}

func readTemplateFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateFetch, err)
	}
	return string(data), nil
}
