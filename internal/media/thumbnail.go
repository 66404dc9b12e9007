// Package media は記事サムネイルの取得を提供する。
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/newsaic/internal/metrics"
	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/security"
)

const (
	// DefaultMaxSize はサムネイルの最大サイズ（5MB）。
	DefaultMaxSize = 5 * 1024 * 1024
	// DefaultTimeout はサムネイル取得のタイムアウト。
	DefaultTimeout = 10 * time.Second

	userAgent = "Newsaic/1.0 Reader"
)

// Image は取得した画像データ。
type Image struct {
	Data        []byte
	ContentType string
}

// Fetcher はサムネイル取得のインターフェース。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Image, error)
}

// ThumbnailFetcher はSSRF対策済みクライアントで外部画像を取得する。
type ThumbnailFetcher struct {
	guard   security.URLGuard
	client  *http.Client
	maxSize int64
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// Options はThumbnailFetcherの設定。ゼロ値の項目は既定値を使う。
type Options struct {
	Timeout time.Duration
	MaxSize int64
	Metrics metrics.MetricsCollector
	Logger  *slog.Logger
}

// NewThumbnailFetcher はThumbnailFetcherを生成する。
func NewThumbnailFetcher(guard security.URLGuard, opts Options) *ThumbnailFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ThumbnailFetcher{
		guard:   guard,
		client:  guard.Client(opts.Timeout),
		maxSize: opts.MaxSize,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Fetch は画像を取得する。
// URLがブロック対象ならSSRF_BLOCKED、取得・検証に失敗したらMEDIA_FETCH_FAILEDを返す。
func (f *ThumbnailFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if err := f.guard.Check(rawURL); err != nil {
		f.logger.Warn("サムネイル取得: SSRFブロック", "url", rawURL, "error", err)
		f.metrics.RecordMediaFetch(metrics.OutcomeBlocked)
		return nil, model.NewSSRFBlockedError()
	}

	img, err := f.fetch(ctx, rawURL)
	if err != nil {
		f.logger.Warn("サムネイル取得に失敗しました", "url", rawURL, "error", err)
		f.metrics.RecordMediaFetch(metrics.OutcomeError)
		return nil, model.NewMediaFetchFailedError(err.Error())
	}
	f.metrics.RecordMediaFetch(metrics.OutcomeSuccess)
	return img, nil
}

func (f *ThumbnailFetcher) fetch(ctx context.Context, rawURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !isImageMime(mimeType) {
		return nil, fmt.Errorf("not an image: %q", mimeType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("image exceeds %d bytes", f.maxSize)
	}
	return &Image{Data: body, ContentType: mimeType}, nil
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(mt))
}

// isImageMime はラスター画像のMIMEタイプかを判定する。
// SVGはスクリプトを含み得るため配信しない。
func isImageMime(mimeType string) bool {
	if mimeType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mimeType, "image/")
}

var _ Fetcher = (*ThumbnailFetcher)(nil)
