// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// fetcher.go - Media resolution for multimodal messages.
package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxMediaSize caps a fetched attachment at 20MB, matching typical vendor
// upload limits.
const maxMediaSize = 20 * 1024 * 1024

// ErrUnsupportedMediaRef indicates a reference that is neither a data URI
// nor an http(s) URL.
var ErrUnsupportedMediaRef = errors.New("unsupported media reference")

// HTTPImageFetcher resolves media references to raw bytes plus MIME type.
// It satisfies prompt.ImageFetcher. Data URIs decode locally; http(s) URLs
// are downloaded with the shared pooled client.
type HTTPImageFetcher struct {
	client *http.Client
}

// NewHTTPImageFetcher creates a fetcher backed by the shared HTTP client.
func NewHTTPImageFetcher() *HTTPImageFetcher {
	return &HTTPImageFetcher{client: sharedHTTPClient}
}

// Fetch resolves ref to bytes and a MIME type.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.download(ctx, ref)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedMediaRef, truncateRef(ref))
	}
}

func (f *HTTPImageFetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media fetch failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize))
	if err != nil {
		return nil, "", fmt.Errorf("media read failed: %w", err)
	}
	if int64(len(data)) == maxMediaSize {
		return nil, "", fmt.Errorf("media exceeds maximum size of %d bytes", maxMediaSize)
	}

	mimeType := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// decodeDataURI parses "data:<mime>;base64,<payload>" references.
func decodeDataURI(ref string) ([]byte, string, error) {
	rest := strings.TrimPrefix(ref, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", fmt.Errorf("%w: malformed data URI", ErrUnsupportedMediaRef)
	}

	mimeType := meta
	base64Encoded := false
	if strings.HasSuffix(meta, ";base64") {
		base64Encoded = true
		mimeType = strings.TrimSuffix(meta, ";base64")
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}

	if !base64Encoded {
		return []byte(payload), mimeType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("data URI decode failed: %w", err)
	}
	return data, mimeType, nil
}

// truncateRef shortens a reference for error messages so a giant data URI
// never lands in a log line.
func truncateRef(ref string) string {
	if len(ref) > 64 {
		return ref[:64] + "..."
	}
	return ref
}
