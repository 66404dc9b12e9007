// Package handler はHTTPハンドラーとルーティングを提供する。
//
// ページハンドラーは訪問者のControllerとバックエンドクライアントを
// リクエストコンテキストから取得し、viewパッケージで描画する。
package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	g "github.com/maragudk/gomponents"

	"github.com/hitoshi/newsaic/internal/controller"
	"github.com/hitoshi/newsaic/internal/middleware"
	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/view"
	"github.com/hitoshi/newsaic/internal/visitor"
)

// pageSupport はページハンドラー共通の描画補助。
type pageSupport struct {
	now    func() time.Time
	logger *slog.Logger
}

func newPageSupport(now func() time.Time, logger *slog.Logger) pageSupport {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return pageSupport{now: now, logger: logger}
}

// meta は共通の描画情報を組み立てる。
func (p pageSupport) meta(r *http.Request, s model.Session) view.Meta {
	return view.Meta{
		Path:      r.URL.Path,
		Reload:    r.URL.RequestURI(),
		Session:   s,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Query:     r.URL.Query().Get("q"),
		Now:       p.now(),
	}
}

// render はページを書き出す。書き込み失敗はログのみ。
func (p pageSupport) render(w http.ResponseWriter, r *http.Request, status int, node g.Node) {
	if err := view.Render(w, status, node); err != nil {
		p.logger.Error("ページの描画に失敗しました",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// session は初期化済みのセッション状態を返す。
func (p pageSupport) session(r *http.Request, v *visitor.Visitor) controller.State {
	return v.Controller.EnsureInitialized(r.Context())
}

// loginPrompt は未認証時のログイン案内を描画する。
func (p pageSupport) loginPrompt(w http.ResponseWriter, r *http.Request, s model.Session) {
	p.render(w, r, http.StatusUnauthorized, view.LoginPromptPage(p.meta(r, s), r.URL.RequestURI()))
}

// backendError はバックエンドエラーをエラーページとして描画する。
func (p pageSupport) backendError(w http.ResponseWriter, r *http.Request, s model.Session, err error) {
	p.logger.Warn("バックエンド呼び出しに失敗しました",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.render(w, r, statusFor(err), view.ErrorPage(p.meta(r, s), model.UserMessage(err), r.URL.RequestURI()))
}

// statusFor はエラーページのステータスコードを返す。
func statusFor(err error) int {
	if apiErr, ok := model.AsAPIError(err); ok {
		return middleware.StatusForError(apiErr)
	}
	return http.StatusInternalServerError
}

// currentVisitor はコンテキストから訪問者を取得する。存在しない場合は500を返す。
func currentVisitor(w http.ResponseWriter, r *http.Request) (*visitor.Visitor, bool) {
	v, ok := visitor.FromContext(r.Context())
	if !ok {
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return v, true
}

// safeNext はリダイレクト先を同一オリジンのパスに限定する。
func safeNext(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return u.RequestURI()
}

// seeOther はPOST後のリダイレクトを行う。
func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fieldErrors はAPIErrorのフィールドエラーを取り出す。
// フィールドに紐づかないメッセージは第2戻り値で返す。
func fieldErrors(err error) (view.FieldErrors, string) {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		return nil, model.UserMessage(err)
	}
	if len(apiErr.Fields) == 0 {
		return nil, apiErr.Message
	}
	fe := make(view.FieldErrors, len(apiErr.Fields))
	for k, v := range apiErr.Fields {
		fe[k] = v
	}
	if nf, ok := apiErr.Fields["non_field_errors"]; ok {
		return fe, nf
	}
	return fe, ""
}
