package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// FileFetcher downloads remote media to local paths.
type FileFetcher interface {
	Fetch(ctx context.Context, url, outputPath string) (int64, error)
}

// Downloader implements FileFetcher with plain GETs. Providers hand out
// pre-signed or public URLs, so no auth header is attached.
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader creates a downloader with the given per-request
// timeout. Zero or negative means 10 minutes.
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Downloader{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch streams url into outputPath and returns the byte count. A 2xx
// response with an empty body still fails: providers answer 200 with
// nothing when an asset is not ready.
func (d *Downloader) Fetch(ctx context.Context, url, outputPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	log.Printf("[Download] → GET %s", url)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("download error (status %d): %s", resp.StatusCode, string(body))
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outputPath, err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath)
		return 0, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if n == 0 {
		os.Remove(outputPath)
		return 0, fmt.Errorf("downloaded file is empty: %s", url)
	}

	log.Printf("[Download] ← %d bytes → %s", n, outputPath)
	return n, nil
}
