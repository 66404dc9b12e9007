package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/newsaic/internal/controller"
	"github.com/hitoshi/newsaic/internal/feedfilter"
	"github.com/hitoshi/newsaic/internal/gateway"
	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/view"
	"github.com/hitoshi/newsaic/internal/visitor"
)

// PageHandler はニュース一覧系ページのハンドラー。
type PageHandler struct {
	pageSupport
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(now func() time.Time, logger *slog.Logger) *PageHandler {
	return &PageHandler{pageSupport: newPageSupport(now, logger)}
}

// Home はGET / を処理する。
// 認証済みの場合はハイライトとおすすめを並行して取得する。どちらの失敗もページ全体は失敗させない。
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state, loading := h.feedSession(r, v)
	page := view.HomePage{
		Articles: state.Articles,
		Loading:  loading,
	}

	if state.Session.Authenticated && !loading {
		eg, ctx := errgroup.WithContext(r.Context())
		eg.Go(func() error {
			stories, err := v.Backend.GetDailyHighlights(ctx)
			if err != nil {
				page.HighlightsError = model.UserMessage(err)
				return nil
			}
			page.Highlights = stories
			return nil
		})
		eg.Go(func() error {
			recs, err := v.Backend.GetRecommendations(ctx)
			if err != nil {
				page.RecError = model.UserMessage(err)
				return nil
			}
			page.Recommendations = recs
			return nil
		})
		_ = eg.Wait()
	}

	h.render(w, r, http.StatusOK, view.Home(h.meta(r, state.Session), page))
}

// TopStories はGET /top-stories を処理する。
// クエリ feed / category / filter はフィルタ条件の差分として適用し、refresh=1 で記事を再取得する。
func (h *PageHandler) TopStories(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state, loading := h.feedSession(r, v)
	if loading {
		h.renderFeed(w, r, v, state, "Top Stories")
		return
	}

	delta, err := filterDelta(r)
	if err != nil {
		h.render(w, r, http.StatusBadRequest,
			view.ErrorPage(h.meta(r, state.Session), model.UserMessage(err), "/top-stories"))
		return
	}
	if delta.Feed != nil && *delta.Feed == model.FeedPersonalized && !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return
	}

	state = h.apply(r.Context(), v, delta, r.URL.Query().Get("refresh") == "1")
	h.renderFeed(w, r, v, state, "Top Stories")
}

// Category はGET /category/{name} を処理する。
func (h *PageHandler) Category(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if state, loading := h.feedSession(r, v); loading {
		h.renderFeed(w, r, v, state, name)
		return
	}

	state := h.apply(r.Context(), v, model.FilterDelta{Category: &name}, false)
	heading := state.Filter.Category
	if heading == model.CategoryAll {
		heading = "Top Stories"
	}
	h.renderFeed(w, r, v, state, heading)
}

// feedSession は訪問者の状態を返す。別のリクエストが初回の読み込みを実行中なら
// 完了を待たずにその時点の状態とloading=trueを返す。
func (h *PageHandler) feedSession(r *http.Request, v *visitor.Visitor) (controller.State, bool) {
	if v.Controller.Initializing() {
		return v.Controller.Snapshot(), true
	}
	return h.session(r, v), false
}

func (h *PageHandler) apply(ctx context.Context, v *visitor.Visitor, delta model.FilterDelta, refresh bool) controller.State {
	var state controller.State
	if delta.Feed != nil || delta.Category != nil || delta.Query != nil {
		state = v.Controller.SetFilter(ctx, delta)
	} else {
		state = v.Controller.Snapshot()
	}
	if refresh {
		state = v.Controller.RefreshArticles(ctx)
	}
	return state
}

func (h *PageHandler) renderFeed(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, state controller.State, heading string) {
	h.render(w, r, http.StatusOK, view.TopStoriesPage(h.meta(r, state.Session), view.FeedPage{
		Heading:    heading,
		BasePath:   "/top-stories",
		Filter:     state.Filter,
		Articles:   state.Visible,
		Categories: h.categories(r.Context(), v),
		Loading:    state.Load == controller.LoadLoading,
	}))
}

// categories はカテゴリ一覧を返す。セクション取得の失敗は既定の一覧で代替する。
func (h *PageHandler) categories(ctx context.Context, v *visitor.Visitor) []string {
	sections, err := v.Backend.ListSections(ctx)
	if err != nil {
		h.logger.Debug("セクション一覧の取得に失敗したため既定のカテゴリを使います",
			slog.String("error", err.Error()),
		)
		sections = nil
	}
	return feedfilter.Categories(sections)
}

// filterDelta はクエリパラメータからフィルタ差分を作る。指定の無い項目はnilのまま。
func filterDelta(r *http.Request) (model.FilterDelta, error) {
	q := r.URL.Query()
	var d model.FilterDelta
	if q.Has("feed") {
		feed, err := model.ParseFeedSelector(q.Get("feed"))
		if err != nil {
			return model.FilterDelta{}, err
		}
		d.Feed = &feed
	}
	if q.Has("category") {
		c := q.Get("category")
		d.Category = &c
	}
	if q.Has("filter") {
		f := q.Get("filter")
		d.Query = &f
	}
	return d, nil
}

// ForYou はGET /for-you を処理する。
func (h *PageHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	if !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return
	}

	var errMsg string
	recs, err := v.Backend.GetRecommendations(r.Context())
	if err != nil {
		h.logger.Warn("おすすめの取得に失敗しました", slog.String("error", err.Error()))
		errMsg = model.UserMessage(err)
	}
	h.render(w, r, http.StatusOK, view.ForYouPage(h.meta(r, state.Session), recs, errMsg))
}

// Search はGET /search?q=&page= を処理する。
func (h *PageHandler) Search(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	res := view.SearchResults{Query: query, Page: page}

	status := http.StatusOK
	if query != "" {
		result, err := v.Backend.SearchArticles(r.Context(), query, page)
		if err != nil {
			h.logger.Warn("記事検索に失敗しました",
				slog.String("query", query),
				slog.String("error", err.Error()),
			)
			res.Error = model.UserMessage(err)
			status = http.StatusBadGateway
		} else {
			res.Result = result
		}
	}
	h.render(w, r, status, view.SearchPage(h.meta(r, state.Session), res))
}

// Bookmarks はGET /bookmarks を処理する。
func (h *PageHandler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	if !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return
	}

	status := http.StatusOK
	var errMsg string
	articles, err := v.Backend.ListBookmarks(r.Context())
	if err != nil {
		h.logger.Warn("ブックマーク一覧の取得に失敗しました", slog.String("error", err.Error()))
		errMsg = model.UserMessage(err)
		status = http.StatusBadGateway
	}
	h.render(w, r, status, view.BookmarksPage(h.meta(r, state.Session), articles, errMsg))
}

// Highlights はGET /highlights?story= を処理する。
func (h *PageHandler) Highlights(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	if !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return
	}

	ref := strings.TrimSpace(r.URL.Query().Get("story"))
	data := view.Highlights{Ref: ref}
	status := http.StatusOK

	stories, err := v.Backend.GetDailyHighlights(r.Context())
	switch {
	case err != nil:
		h.logger.Warn("ハイライトの取得に失敗しました", slog.String("error", err.Error()))
		data.Error = model.UserMessage(err)
		status = http.StatusBadGateway
	default:
		data.Stories = stories
		if ref != "" {
			if s, found := gateway.FindStory(stories, ref); found {
				data.Selected = &s
			} else {
				notFound := model.NewStoryNotFoundError(ref)
				data.NotFound = model.UserMessage(notFound)
				status = statusFor(notFound)
			}
		}
	}
	h.render(w, r, status, view.HighlightsPage(h.meta(r, state.Session), data))
}
