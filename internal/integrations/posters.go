package integrations

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const maxPosterBytes = 4 << 20

// PosterStore mirrors provider poster images into the S3 bucket so the
// catalog never hotlinks upstream CDNs. Failures degrade to the original
// URL; a mirror problem must never fail an ingest run.
type PosterStore struct {
	s3         *S3Client
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	cached map[string]string
}

func NewPosterStore(s3 *S3Client, logger *slog.Logger) *PosterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PosterStore{
		s3:         s3,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		cached:     make(map[string]string),
	}
}

// Mirror downloads rawURL once per process and uploads it under a
// content-addressed key. Returns the serving URL, or rawURL on any failure.
func (p *PosterStore) Mirror(ctx context.Context, rawURL string) string {
	if p == nil || p.s3 == nil || rawURL == "" {
		return rawURL
	}
	p.mu.Lock()
	if mirrored, ok := p.cached[rawURL]; ok {
		p.mu.Unlock()
		return mirrored
	}
	p.mu.Unlock()

	mirrored := p.fetchAndUpload(ctx, rawURL)
	p.mu.Lock()
	p.cached[rawURL] = mirrored
	p.mu.Unlock()
	return mirrored
}

func (p *PosterStore) fetchAndUpload(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("poster_fetch_failed", "url", rawURL, "error", err)
		return rawURL
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("poster_fetch_status", "url", rawURL, "status", resp.StatusCode)
		return rawURL
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes))
	if err != nil || len(data) == 0 {
		return rawURL
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
		if !strings.HasPrefix(contentType, "image/") {
			return rawURL
		}
	}

	sum := sha256.Sum256(data)
	key := buildPosterKey(hex.EncodeToString(sum[:16]), extForContentType(contentType))
	uploaded, err := p.s3.UploadObject(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		p.logger.Warn("poster_upload_failed", "url", rawURL, "error", err)
		return rawURL
	}
	return uploaded
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
