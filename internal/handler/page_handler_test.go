package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/newsaic/internal/gateway"
	"github.com/hitoshi/newsaic/internal/model"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestPageHandler() *PageHandler {
	return NewPageHandler(func() time.Time { return testNow }, nil)
}

func sampleArticles() []model.Article {
	return []model.Article{
		{ID: "1", Headline: "Cup final drama", SectionName: "Sport", SectionID: "sport"},
		{ID: "2", Headline: "Election results announced", SectionName: "World", SectionID: "world"},
	}
}

// --- GET / テスト ---

func TestPageHandler_Home_Anonymous(t *testing.T) {
	var highlightsCalled atomic.Bool
	b := &mockBackend{
		listArticlesFn: func(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
			return sampleArticles(), nil
		},
		highlightsFn: func(ctx context.Context) ([]model.Story, error) {
			highlightsCalled.Store(true)
			return nil, nil
		},
	}
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/", nil), newTestVisitor(b))
	w := httptest.NewRecorder()

	newTestPageHandler().Home(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	assertContains(t, body, "Cup final drama")
	assertContains(t, body, "Election results announced")
	assertNotContains(t, body, "Your briefing")
	if highlightsCalled.Load() {
		t.Error("未認証でハイライトを取得してはならない")
	}
}

func TestPageHandler_Home_AuthenticatedToleratesHighlightsFailure(t *testing.T) {
	b := &mockBackend{
		checkAuthFn: authenticated,
		highlightsFn: func(ctx context.Context) ([]model.Story, error) {
			return nil, model.NewTransportError("highlights", errors.New("connection refused"))
		},
		recsFn: func(ctx context.Context) ([]model.Article, error) {
			return []model.Article{{ID: "9", Headline: "Picked for you"}}, nil
		},
	}
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/", nil), newTestVisitor(b))
	w := httptest.NewRecorder()

	newTestPageHandler().Home(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	assertContains(t, body, "Your briefing")
	assertContains(t, body, "Picked for you")
}

func TestPageHandler_NoVisitor_InternalError(t *testing.T) {
	w := httptest.NewRecorder()
	newTestPageHandler().Home(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// --- GET /top-stories テスト ---

func TestPageHandler_TopStories_CategoryFilter(t *testing.T) {
	b := &mockBackend{
		listArticlesFn: func(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
			return sampleArticles(), nil
		},
	}
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/top-stories?category=Sport", nil), newTestVisitor(b))
	w := httptest.NewRecorder()

	newTestPageHandler().TopStories(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	assertContains(t, body, "Cup final drama")
	assertNotContains(t, body, "Election results announced")
}

func TestPageHandler_TopStories_QueryFilter(t *testing.T) {
	b := &mockBackend{
		listArticlesFn: func(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
			return sampleArticles(), nil
		},
	}
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/top-stories?filter=election", nil), newTestVisitor(b))
	w := httptest.NewRecorder()

	newTestPageHandler().TopStories(w, req)

	body := w.Body.String()
	assertContains(t, body, "Election results announced")
	assertNotContains(t, body, "Cup final drama")
}

func TestPageHandler_TopStories_InvalidFeed(t *testing.T) {
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/top-stories?feed=weekly", nil), newTestVisitor(&mockBackend{}))
	w := httptest.NewRecorder()

	newTestPageHandler().TopStories(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPageHandler_TopStories_PersonalizedRequiresLogin(t *testing.T) {
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/top-stories?feed=personalized", nil), newTestVisitor(&mockBackend{}))
	w := httptest.NewRecorder()

	newTestPageHandler().TopStories(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	assertContains(t, w.Body.String(), "Please log in")
}

func TestPageHandler_TopStories_PersonalizedRefetches(t *testing.T) {
	var preferred atomic.Int32
	b := &mockBackend{
		checkAuthFn: authenticated,
		listArticlesFn: func(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
			if params.Preferred {
				preferred.Add(1)
				return []model.Article{{ID: "7", Headline: "Tailored story"}}, nil
			}
			return sampleArticles(), nil
		},
	}
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/top-stories?feed=personalized", nil), newTestVisitor(b))
	w := httptest.NewRecorder()

	newTestPageHandler().TopStories(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if preferred.Load() != 1 {
		t.Errorf("preferred fetches = %d, want 1", preferred.Load())
	}
	body := w.Body.String()
	assertContains(t, body, "Tailored story")
	assertNotContains(t, body, "Cup final drama")
}

func TestPageHandler_TopStories_Refresh(t *testing.T) {
	var calls atomic.Int32
	b := &mockBackend{
		listArticlesFn: func(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
			calls.Add(1)
			return sampleArticles(), nil
		},
	}
	v := newTestVisitor(b)
	h := newTestPageHandler()

	h.TopStories(httptest.NewRecorder(), withVisitor(httptest.NewRequest(http.MethodGet, "/top-stories", nil), v))
	h.TopStories(httptest.NewRecorder(), withVisitor(httptest.NewRequest(http.MethodGet, "/top-stories?refresh=1", nil), v))

	if calls.Load() != 2 {
		t.Errorf("ListArticles calls = %d, want 2 (初期化1回 + 再取得1回)", calls.Load())
	}
}

// TestPageHandler_Feed_LoadingWhileAnotherRequestInitializes は同じ訪問者の初回読み込みが
// 実行中のとき、待たずに読み込み中の表示を返すことを検証する。
func TestPageHandler_Feed_LoadingWhileAnotherRequestInitializes(t *testing.T) {
	release := make(chan struct{})
	var listCalls atomic.Int32
	b := &mockBackend{
		listArticlesFn: func(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
			listCalls.Add(1)
			<-release
			return sampleArticles(), nil
		},
	}
	v := newTestVisitor(b)
	h := newTestPageHandler()

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.Home(first, withVisitor(httptest.NewRequest(http.MethodGet, "/", nil), v))
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !v.Controller.Initializing() {
		if time.Now().After(deadline) {
			close(release)
			t.Fatal("initial load did not start")
		}
		time.Sleep(time.Millisecond)
	}

	tests := []struct {
		name   string
		target string
		serve  func(w http.ResponseWriter, r *http.Request)
		want   string
	}{
		{"トップストーリー", "/top-stories?category=Sport", h.TopStories, `content="1;url=/top-stories?category=Sport"`},
		{"ホーム", "/", h.Home, `content="1;url=/"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.serve(w, withVisitor(httptest.NewRequest(http.MethodGet, tt.target, nil), v))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			assertContains(t, w.Body.String(), `aria-busy="true"`)
			assertContains(t, w.Body.String(), tt.want)
			assertNotContains(t, w.Body.String(), "Cup final drama")
		})
	}

	close(release)
	<-done
	assertContains(t, first.Body.String(), "Cup final drama")
	if listCalls.Load() != 1 {
		t.Errorf("ListArticles called %d times, want 1", listCalls.Load())
	}
}

func TestPageHandler_Category(t *testing.T) {
	b := &mockBackend{
		listArticlesFn: func(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
			return sampleArticles(), nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/category/World", nil)
	req = withVisitor(withURLParam(req, "name", "World"), newTestVisitor(b))
	w := httptest.NewRecorder()

	newTestPageHandler().Category(w, req)

	body := w.Body.String()
	assertContains(t, body, "Election results announced")
	assertNotContains(t, body, "Cup final drama")
}

func TestFilterDelta(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantFeed     *model.FeedSelector
		wantCategory *string
		wantQuery    *string
		wantErr      bool
	}{
		{name: "指定なし", query: ""},
		{name: "フィード", query: "feed=today", wantFeed: ptr(model.FeedToday)},
		{name: "foryou別名", query: "feed=foryou", wantFeed: ptr(model.FeedPersonalized)},
		{name: "カテゴリとクエリ", query: "category=Sport&filter=cup", wantCategory: ptr("Sport"), wantQuery: ptr("cup")},
		{name: "空のフィルタも差分として扱う", query: "filter=", wantQuery: ptr("")},
		{name: "不正なフィード", query: "feed=weekly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/top-stories?"+tt.query, nil)
			d, err := filterDelta(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !equalPtr(d.Feed, tt.wantFeed) {
				t.Errorf("Feed = %v, want %v", d.Feed, tt.wantFeed)
			}
			if !equalPtr(d.Category, tt.wantCategory) {
				t.Errorf("Category = %v, want %v", d.Category, tt.wantCategory)
			}
			if !equalPtr(d.Query, tt.wantQuery) {
				t.Errorf("Query = %v, want %v", d.Query, tt.wantQuery)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// --- 保護ページ テスト ---

func TestPageHandler_ProtectedPages_RequireLogin(t *testing.T) {
	h := newTestPageHandler()
	tests := []struct {
		name    string
		path    string
		handler http.HandlerFunc
	}{
		{"for-you", "/for-you", h.ForYou},
		{"bookmarks", "/bookmarks", h.Bookmarks},
		{"highlights", "/highlights", h.Highlights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withVisitor(httptest.NewRequest(http.MethodGet, tt.path, nil), newTestVisitor(&mockBackend{}))
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			assertContains(t, w.Body.String(), `name="next"`)
		})
	}
}

func TestPageHandler_ForYou(t *testing.T) {
	b := &mockBackend{
		checkAuthFn: authenticated,
		recsFn: func(ctx context.Context) ([]model.Article, error) {
			return []model.Article{{ID: "3", Headline: "Because you read science"}}, nil
		},
	}
	req := withVisitor(httptest.NewRequest(http.MethodGet, "/for-you", nil), newTestVisitor(b))
	w := httptest.NewRecorder()

	newTestPageHandler().ForYou(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	assertContains(t, w.Body.String(), "Because you read science")
}

// --- GET /search テスト ---

func TestPageHandler_Search(t *testing.T) {
	t.Run("クエリなしはバックエンドを呼ばない", func(t *testing.T) {
		b := &mockBackend{
			searchFn: func(ctx context.Context, query string, page int) (*model.ArticlePage, error) {
				t.Error("SearchArticles must not be called")
				return nil, nil
			},
		}
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/search", nil), newTestVisitor(b))
		w := httptest.NewRecorder()

		newTestPageHandler().Search(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("クエリとページを渡す", func(t *testing.T) {
		b := &mockBackend{
			searchFn: func(ctx context.Context, query string, page int) (*model.ArticlePage, error) {
				if query != "climate" || page != 2 {
					t.Errorf("query, page = %q, %d, want climate, 2", query, page)
				}
				return &model.ArticlePage{Count: 21, Previous: "p1", Results: []model.Article{{ID: "5", Headline: "Climate talks"}}}, nil
			},
		}
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/search?q=climate&page=2", nil), newTestVisitor(b))
		w := httptest.NewRecorder()

		newTestPageHandler().Search(w, req)

		body := w.Body.String()
		assertContains(t, body, "Climate talks")
		assertContains(t, body, "21 results")
	})

	t.Run("不正なページは1として扱う", func(t *testing.T) {
		b := &mockBackend{
			searchFn: func(ctx context.Context, query string, page int) (*model.ArticlePage, error) {
				if page != 1 {
					t.Errorf("page = %d, want 1", page)
				}
				return &model.ArticlePage{}, nil
			},
		}
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/search?q=x&page=-3", nil), newTestVisitor(b))
		newTestPageHandler().Search(httptest.NewRecorder(), req)
	})

	t.Run("失敗はエラー表示", func(t *testing.T) {
		b := &mockBackend{
			searchFn: func(ctx context.Context, query string, page int) (*model.ArticlePage, error) {
				return nil, model.NewTransportError("search", errors.New("timeout"))
			},
		}
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/search?q=x", nil), newTestVisitor(b))
		w := httptest.NewRecorder()

		newTestPageHandler().Search(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
		}
		assertContains(t, w.Body.String(), "Search failed")
	})
}

// --- GET /bookmarks テスト ---

func TestPageHandler_Bookmarks(t *testing.T) {
	t.Run("一覧を表示", func(t *testing.T) {
		b := &mockBackend{
			checkAuthFn: authenticated,
			listBookmarksFn: func(ctx context.Context) ([]model.Article, error) {
				return []model.Article{{ID: "8", Headline: "Saved for later"}}, nil
			},
		}
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/bookmarks", nil), newTestVisitor(b))
		w := httptest.NewRecorder()

		newTestPageHandler().Bookmarks(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		assertContains(t, w.Body.String(), "Saved for later")
	})

	t.Run("取得失敗はエラー表示", func(t *testing.T) {
		b := &mockBackend{
			checkAuthFn: authenticated,
			listBookmarksFn: func(ctx context.Context) ([]model.Article, error) {
				return nil, model.NewBackendError(http.StatusInternalServerError, "", "ブックマーク一覧の取得に失敗しました")
			},
		}
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/bookmarks", nil), newTestVisitor(b))
		w := httptest.NewRecorder()

		newTestPageHandler().Bookmarks(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
		}
		assertContains(t, w.Body.String(), "Error Loading Bookmarks")
	})
}

// --- GET /highlights テスト ---

func TestPageHandler_Highlights(t *testing.T) {
	stories := []model.Story{
		{ID: "s1", Title: "Morning roundup", BodyText: "First paragraph.", Narration: "https://cdn.example.com/a.mp3"},
		{ID: "s2", Title: "Evening digest"},
	}
	b := &mockBackend{
		checkAuthFn: authenticated,
		highlightsFn: func(ctx context.Context) ([]model.Story, error) {
			return stories, nil
		},
	}

	t.Run("ストーリーを選択", func(t *testing.T) {
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/highlights?story=s1", nil), newTestVisitor(b))
		w := httptest.NewRecorder()

		newTestPageHandler().Highlights(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		body := w.Body.String()
		assertContains(t, body, "Listen to this story")
		assertContains(t, body, "First paragraph.")
	})

	t.Run("存在しないストーリーは404", func(t *testing.T) {
		req := withVisitor(httptest.NewRequest(http.MethodGet, "/highlights?story=missing", nil), newTestVisitor(b))
		w := httptest.NewRecorder()

		newTestPageHandler().Highlights(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
		assertContains(t, w.Body.String(), "Story not found")
		assertContains(t, w.Body.String(), model.NewStoryNotFoundError("missing").Message)
	})
}
