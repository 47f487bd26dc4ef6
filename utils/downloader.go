package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"navi/model"
)

var (
	// ErrTooLarge is returned when a payload exceeds the configured byte cap.
	ErrTooLarge = errors.New("download exceeds size limit")
	// ErrDownloadFailed wraps transport and status failures.
	ErrDownloadFailed = errors.New("download failed")
)

// Downloader fetches bounded payloads for content filter checks.
type Downloader struct {
	client   *http.Client
	maxBytes int64
	timeout  time.Duration
}

// NewDownloader creates a downloader. A nil client gets a fresh NewHTTPClient.
func NewDownloader(client *http.Client, cfg model.DownloadConfig) *Downloader {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Downloader{client: client, maxBytes: cfg.MaxBytes, timeout: cfg.Timeout}
}

// Fetch downloads url. Payloads that declare or turn out to be larger than
// the cap yield ErrTooLarge; the whole read is bounded by the timeout.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bad status: %s", ErrDownloadFailed, resp.Status)
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrTooLarge, resp.ContentLength, d.maxBytes)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		// One extra byte tells an exact-size payload from an oversized one.
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, d.maxBytes)
	}
	return data, nil
}
