package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/security"
	"github.com/hitoshi/newsaic/internal/view"
	"github.com/hitoshi/newsaic/internal/visitor"
)

// 記事ページのメッセージ
const (
	msgArticleNotFound   = "The article you're looking for doesn't exist or has been removed."
	msgBookmarkFailed    = "Could not update the bookmark. Please try again."
	msgQuestionRequired  = "Please enter a question."
	maxQuestionLength    = 1000
	msgQuestionTooLong   = "Questions must be 1000 characters or fewer."
	bookmarkActionAdd    = "add"
	bookmarkActionRemove = "remove"
)

// ArticleHandler は記事詳細・ブックマーク・質問応答のハンドラー。
type ArticleHandler struct {
	pageSupport
	sanitizer security.Sanitizer
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(sanitizer security.Sanitizer, now func() time.Time, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{pageSupport: newPageSupport(now, logger), sanitizer: sanitizer}
}

// GetArticle はGET /articles/{id} を処理する。
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	h.renderArticle(w, r, v, view.ArticleDetail{})
}

// renderArticle は記事を取得して詳細ページを描画する。
// 関連記事とブックマーク状態は補助情報のため、失敗しても記事は表示する。
func (h *ArticleHandler) renderArticle(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, d view.ArticleDetail) {
	state := h.session(r, v)
	id := chi.URLParam(r, "id")

	article, err := v.Backend.GetArticle(r.Context(), id)
	if err != nil {
		if model.IsNotFound(err) {
			h.render(w, r, http.StatusNotFound,
				view.NotFoundPage(h.meta(r, state.Session), "Article Not Found", msgArticleNotFound))
			return
		}
		h.backendError(w, r, state.Session, err)
		return
	}

	d.Article = *article
	d.BodyHTML = h.bodyHTML(article.BodyText)

	eg, ctx := errgroup.WithContext(r.Context())
	eg.Go(func() error {
		d.Similar = v.Backend.GetSimilarArticles(ctx, id)
		return nil
	})
	if state.Session.Authenticated {
		eg.Go(func() error {
			d.Bookmarked = h.isBookmarked(ctx, v, *article)
			return nil
		})
	}
	_ = eg.Wait()

	status := http.StatusOK
	if d.QAError != "" || d.Message.Error != "" {
		status = http.StatusBadRequest
	}
	h.render(w, r, status, view.ArticleDetailPage(h.meta(r, state.Session), d))
}

// bodyHTML は本文をサニタイズ済みHTMLにする。タグを含まない本文は段落に分割する。
func (h *ArticleHandler) bodyHTML(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	if !strings.Contains(body, "<") {
		body = view.PlainTextBody(body)
	}
	return h.sanitizer.Sanitize(body)
}

func (h *ArticleHandler) isBookmarked(ctx context.Context, v *visitor.Visitor, a model.Article) bool {
	res, err := v.Backend.CheckBookmark(ctx, a.BookmarkRef())
	if err != nil {
		h.logger.Debug("ブックマーク状態の確認に失敗しました",
			slog.String("article", a.BackendID()),
			slog.String("error", err.Error()),
		)
		return false
	}
	return res.Bookmarked
}

// ToggleBookmark はPOST /articles/{id}/bookmark を処理する。
// action=add は追加、action=remove は削除。成功時はnextへリダイレクトする。
func (h *ArticleHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	if !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	switch r.PostFormValue("action") {
	case bookmarkActionRemove:
		_, err = v.Backend.Unbookmark(r.Context(), id)
	case bookmarkActionAdd, "":
		_, err = v.Backend.Bookmark(r.Context(), id)
	default:
		err = model.NewValidationError("action must be add or remove", nil)
	}
	if err != nil {
		h.logger.Warn("ブックマークの更新に失敗しました",
			slog.String("article", id),
			slog.String("error", err.Error()),
		)
		msg := msgBookmarkFailed
		if model.IsCategory(err, model.CategoryValidation) {
			msg = model.UserMessage(err)
		}
		h.renderArticle(w, r, v, view.ArticleDetail{Message: view.FormMessage{Error: msg}})
		return
	}

	seeOther(w, r, safeNext(r.PostFormValue("next"), "/articles/"+id))
}

// AskQuestion はPOST /articles/{id}/qa を処理する。
func (h *ArticleHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	if !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return
	}

	question := strings.TrimSpace(r.PostFormValue("question"))
	d := view.ArticleDetail{Question: question}
	switch {
	case question == "":
		d.QAError = msgQuestionRequired
	case len([]rune(question)) > maxQuestionLength:
		d.QAError = msgQuestionTooLong
	default:
		answer, err := v.Backend.AskQuestion(r.Context(), chi.URLParam(r, "id"), question)
		if err != nil {
			h.logger.Warn("質問応答に失敗しました", slog.String("error", err.Error()))
			d.QAError = model.UserMessage(err)
		} else {
			d.Answer = answer
		}
	}
	h.renderArticle(w, r, v, d)
}
