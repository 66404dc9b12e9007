// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/newsaic/internal/visitor"
)

// VisitorCookieName は訪問者IDを保持するCookieの名前。
const VisitorCookieName = "newsaic_visitor"

// VisitorStore は訪問者の取得に必要なインターフェース。
// visitor.Registryの部分集合として定義する。
type VisitorStore interface {
	GetOrCreate(id string) (*visitor.Visitor, bool, error)
}

// VisitorCookieConfig は訪問者Cookieの設定。
type VisitorCookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// NewVisitorMiddleware はCookieの訪問者IDから訪問者を解決し、コンテキストに注入するミドルウェアを返す。
// Cookieが無い・不明なIDの場合は新しい訪問者を作り、Cookieを発行する。
func NewVisitorMiddleware(store VisitorStore, config VisitorCookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cookie, err := r.Cookie(VisitorCookieName); err == nil {
				id = cookie.Value
			}

			v, created, err := store.GetOrCreate(id)
			if err != nil {
				slog.Error("failed to resolve visitor",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if created {
				SetVisitorCookie(w, v.ID, config)
			}

			next.ServeHTTP(w, r.WithContext(visitor.NewContext(r.Context(), v)))
		})
	}
}

// SetVisitorCookie は訪問者IDのCookieを設定する。ログアウトで訪問者を作り直した際にも使う。
func SetVisitorCookie(w http.ResponseWriter, id string, config VisitorCookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// VisitorIDFromRequest はコンテキストの訪問者IDを返す。未解決の場合は空文字列。
func VisitorIDFromRequest(r *http.Request) string {
	if v, ok := visitor.FromContext(r.Context()); ok {
		return v.ID
	}
	return ""
}
