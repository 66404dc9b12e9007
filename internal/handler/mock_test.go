package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsaic/internal/controller"
	"github.com/hitoshi/newsaic/internal/gateway"
	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/visitor"
)

// --- モック定義 ---

// mockBackend はvisitor.Backendのモック実装。
// 未設定のメソッドは空の成功結果を返す。
type mockBackend struct {
	loginFn          func(ctx context.Context, username, password string) error
	logoutFn         func(ctx context.Context) gateway.LogoutResult
	checkAuthFn      func(ctx context.Context) gateway.AuthStatus
	registerFn       func(ctx context.Context, reg model.Registration) (*model.User, error)
	listArticlesFn   func(ctx context.Context, params gateway.ListParams) ([]model.Article, error)
	currentUserFn    func(ctx context.Context) (*model.User, error)
	updateProfileFn  func(ctx context.Context, p model.ProfileUpdate) (*model.User, error)
	updatePersonaFn  func(ctx context.Context, p model.Persona) error
	updateSectionsFn func(ctx context.Context, ids []string) error
	searchFn         func(ctx context.Context, query string, page int) (*model.ArticlePage, error)
	getArticleFn     func(ctx context.Context, id string) (*model.Article, error)
	similarFn        func(ctx context.Context, id string) []model.Article
	recsFn           func(ctx context.Context) ([]model.Article, error)
	sectionsFn       func(ctx context.Context) ([]model.Section, error)
	askFn            func(ctx context.Context, id, question string) (string, error)
	bookmarkFn       func(ctx context.Context, ref string) (gateway.BookmarkResult, error)
	unbookmarkFn     func(ctx context.Context, ref string) (gateway.BookmarkResult, error)
	checkBookmarkFn  func(ctx context.Context, ref string) (gateway.BookmarkResult, error)
	listBookmarksFn  func(ctx context.Context) ([]model.Article, error)
	highlightsFn     func(ctx context.Context) ([]model.Story, error)
}

var _ visitor.Backend = (*mockBackend)(nil)

func (m *mockBackend) Login(ctx context.Context, username, password string) error {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil
}

func (m *mockBackend) Logout(ctx context.Context) gateway.LogoutResult {
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return gateway.LogoutResult{Success: true}
}

func (m *mockBackend) CheckAuth(ctx context.Context) gateway.AuthStatus {
	if m.checkAuthFn != nil {
		return m.checkAuthFn(ctx)
	}
	return gateway.AuthStatus{}
}

func (m *mockBackend) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, reg)
	}
	return &model.User{Username: reg.Username}, nil
}

func (m *mockBackend) ListArticles(ctx context.Context, params gateway.ListParams) ([]model.Article, error) {
	if m.listArticlesFn != nil {
		return m.listArticlesFn(ctx, params)
	}
	return nil, nil
}

func (m *mockBackend) CurrentUser(ctx context.Context) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx)
	}
	return &model.User{Username: "alice"}, nil
}

func (m *mockBackend) UpdateProfile(ctx context.Context, p model.ProfileUpdate) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, p)
	}
	return &model.User{Username: "alice", FirstName: p.FirstName}, nil
}

func (m *mockBackend) UpdatePersona(ctx context.Context, p model.Persona) error {
	if m.updatePersonaFn != nil {
		return m.updatePersonaFn(ctx, p)
	}
	return nil
}

func (m *mockBackend) UpdateSections(ctx context.Context, ids []string) error {
	if m.updateSectionsFn != nil {
		return m.updateSectionsFn(ctx, ids)
	}
	return nil
}

func (m *mockBackend) SearchArticles(ctx context.Context, query string, page int) (*model.ArticlePage, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, page)
	}
	return &model.ArticlePage{}, nil
}

func (m *mockBackend) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	if m.getArticleFn != nil {
		return m.getArticleFn(ctx, id)
	}
	return nil, model.NewArticleNotFoundError(id)
}

func (m *mockBackend) GetSimilarArticles(ctx context.Context, id string) []model.Article {
	if m.similarFn != nil {
		return m.similarFn(ctx, id)
	}
	return nil
}

func (m *mockBackend) GetRecommendations(ctx context.Context) ([]model.Article, error) {
	if m.recsFn != nil {
		return m.recsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) ListSections(ctx context.Context) ([]model.Section, error) {
	if m.sectionsFn != nil {
		return m.sectionsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) AskQuestion(ctx context.Context, id, question string) (string, error) {
	if m.askFn != nil {
		return m.askFn(ctx, id, question)
	}
	return "No answer found.", nil
}

func (m *mockBackend) Bookmark(ctx context.Context, ref string) (gateway.BookmarkResult, error) {
	if m.bookmarkFn != nil {
		return m.bookmarkFn(ctx, ref)
	}
	return gateway.BookmarkResult{Success: true, Bookmarked: true}, nil
}

func (m *mockBackend) Unbookmark(ctx context.Context, ref string) (gateway.BookmarkResult, error) {
	if m.unbookmarkFn != nil {
		return m.unbookmarkFn(ctx, ref)
	}
	return gateway.BookmarkResult{Success: true}, nil
}

func (m *mockBackend) CheckBookmark(ctx context.Context, ref string) (gateway.BookmarkResult, error) {
	if m.checkBookmarkFn != nil {
		return m.checkBookmarkFn(ctx, ref)
	}
	return gateway.BookmarkResult{Success: true}, nil
}

func (m *mockBackend) ListBookmarks(ctx context.Context) ([]model.Article, error) {
	if m.listBookmarksFn != nil {
		return m.listBookmarksFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) GetDailyHighlights(ctx context.Context) ([]model.Story, error) {
	if m.highlightsFn != nil {
		return m.highlightsFn(ctx)
	}
	return nil, nil
}

// --- テストヘルパー ---

const testVisitorID = "11111111-2222-4333-8444-555555555555"

// authenticated はログイン済みユーザーを返すcheckAuthFn。
func authenticated(ctx context.Context) gateway.AuthStatus {
	return gateway.AuthStatus{Authenticated: true, User: &model.User{Username: "alice", FirstName: "Alice"}}
}

// newTestVisitor はモックバックエンドを使う訪問者を生成する。
func newTestVisitor(b *mockBackend) *visitor.Visitor {
	return &visitor.Visitor{
		ID:         testVisitorID,
		Controller: controller.New(b, b, controller.Options{}),
		Backend:    b,
	}
}

// withVisitor はリクエストのコンテキストに訪問者を格納する。
func withVisitor(r *http.Request, v *visitor.Visitor) *http.Request {
	return r.WithContext(visitor.NewContext(r.Context(), v))
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// formRequest はフォーム送信のPOSTリクエストを生成する。
func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("body does not contain %q", want)
	}
}

func assertNotContains(t *testing.T, body, unwanted string) {
	t.Helper()
	if strings.Contains(body, unwanted) {
		t.Errorf("body unexpectedly contains %q", unwanted)
	}
}
