// Package datasource opens the customer dataset from a local path or an
// HTTP(S) URL.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type Config struct {
	Location string        `split_words:"true" default:"data/telecom_churn.csv"`
	Token    string        `split_words:"true"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// New picks a file or HTTP source from the location's scheme.
func New(cfg Config) (Source, error) {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		return nil, errors.New("data source location is required")
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(cfg)
	}
	return &FileSource{Path: strings.TrimPrefix(location, "file://")}, nil
}

func MustNew(cfg Config) Source {
	src, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return src
}

type FileSource struct {
	Path string
}

func (f *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return file, nil
}

type HTTPSource struct {
	url        string
	token      string
	httpClient *http.Client
}

func NewHTTPSource(cfg Config) (*HTTPSource, error) {
	location := strings.TrimSpace(cfg.Location)
	if _, err := url.ParseRequestURI(location); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSource{
		url:   location,
		token: strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (h *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch dataset: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}
