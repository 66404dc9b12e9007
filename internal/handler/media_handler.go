package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/newsaic/internal/media"
	"github.com/hitoshi/newsaic/internal/middleware"
	"github.com/hitoshi/newsaic/internal/model"
)

// MediaHandler はサムネイル画像のプロキシハンドラー。
type MediaHandler struct {
	fetcher media.Fetcher
	logger  *slog.Logger
}

// NewMediaHandler はMediaHandlerを生成する。
func NewMediaHandler(fetcher media.Fetcher, logger *slog.Logger) *MediaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaHandler{fetcher: fetcher, logger: logger}
}

// Thumbnail は外部のサムネイル画像を取得して返す。
// GET /media/thumbnail?url=
func (h *MediaHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		middleware.WriteAPIError(w, model.NewValidationError("url is required", map[string]string{"url": "This field is required."}))
		return
	}

	img, err := h.fetcher.Fetch(r.Context(), raw)
	if err != nil {
		h.logger.Info("サムネイルの取得に失敗しました",
			slog.String("url", raw),
			slog.String("error", err.Error()),
		)
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}
