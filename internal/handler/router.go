package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsaic/internal/media"
	"github.com/hitoshi/newsaic/internal/metrics"
	"github.com/hitoshi/newsaic/internal/middleware"
	"github.com/hitoshi/newsaic/internal/security"
)

// VisitorRegistry はルーターが利用する訪問者レジストリ。*visitor.Registry が実装する。
type VisitorRegistry interface {
	middleware.VisitorStore
	middleware.KnownVisitors
	VisitorResetter
	VisitorCounter
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Visitors      VisitorRegistry
	VisitorCookie middleware.VisitorCookieConfig
	CSRF          middleware.CSRFConfig
	RateLimiter   *middleware.RateLimiter

	// 記事本文とサムネイル
	Sanitizer  security.Sanitizer
	Thumbnails media.Fetcher

	// 運用
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewRouter は全ページとエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → RateLimit(General) → Visitor → Logging → CSRF
//
// /health と /metrics は訪問者を生成しないようチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	pageHandler := NewPageHandler(deps.Now, logger)
	articleHandler := NewArticleHandler(deps.Sanitizer, deps.Now, logger)
	accountHandler := NewAccountHandler(deps.Visitors, deps.VisitorCookie, deps.Now, logger)
	apiHandler := NewAPIHandler(deps.Visitors)
	mediaHandler := NewMediaHandler(deps.Thumbnails, logger)

	// --- 運用エンドポイント ---
	r.Get("/health", apiHandler.Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 訪問者単位のルート ---
	// ミドルウェアスタック: RateLimit(General) → Visitor → Logging → CSRF
	// 訪問者の生成はレート制限の内側で行う
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware(deps.Visitors))
		r.Use(middleware.NewVisitorMiddleware(deps.Visitors, deps.VisitorCookie))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		// ニュース一覧
		r.Get("/", pageHandler.Home)
		r.Get("/top-stories", pageHandler.TopStories)
		r.Get("/category/{name}", pageHandler.Category)
		r.Get("/for-you", pageHandler.ForYou)
		r.Get("/search", pageHandler.Search)
		r.Get("/bookmarks", pageHandler.Bookmarks)
		r.Get("/highlights", pageHandler.Highlights)

		// 記事
		r.Route("/articles/{id}", func(r chi.Router) {
			r.Get("/", articleHandler.GetArticle)
			r.Post("/bookmark", articleHandler.ToggleBookmark)
			r.Post("/qa", articleHandler.AskQuestion)
		})

		// 認証（ログイン試行は専用レート制限を追加）
		r.Get("/login", accountHandler.LoginForm)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", accountHandler.Login)
		r.Post("/logout", accountHandler.Logout)
		r.Get("/register", accountHandler.RegisterForm)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", accountHandler.Register)

		// 設定
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", accountHandler.Settings)
			r.Post("/profile", accountHandler.UpdateProfile)
			r.Post("/persona", accountHandler.UpdatePersona)
			r.Post("/sections", accountHandler.UpdateSections)
		})

		// JSON API
		r.Get("/api/feed", apiHandler.Feed)
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		// サムネイルプロキシ
		r.Get("/media/thumbnail", mediaHandler.Thumbnail)
	})

	return r
}
