package visitor

import (
	"context"

	"github.com/hitoshi/newsaic/internal/controller"
	"github.com/hitoshi/newsaic/internal/gateway"
	"github.com/hitoshi/newsaic/internal/model"
)

// Backend は訪問者専用のバックエンドAPIクライアント。*gateway.Client が実装する。
type Backend interface {
	controller.SessionGateway
	controller.ContentGateway

	CurrentUser(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, p model.ProfileUpdate) (*model.User, error)
	UpdatePersona(ctx context.Context, p model.Persona) error
	UpdateSections(ctx context.Context, sectionIDs []string) error

	SearchArticles(ctx context.Context, query string, page int) (*model.ArticlePage, error)
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	GetSimilarArticles(ctx context.Context, id string) []model.Article
	GetRecommendations(ctx context.Context) ([]model.Article, error)
	ListSections(ctx context.Context) ([]model.Section, error)
	AskQuestion(ctx context.Context, id, question string) (string, error)

	Bookmark(ctx context.Context, ref string) (gateway.BookmarkResult, error)
	Unbookmark(ctx context.Context, ref string) (gateway.BookmarkResult, error)
	CheckBookmark(ctx context.Context, ref string) (gateway.BookmarkResult, error)
	ListBookmarks(ctx context.Context) ([]model.Article, error)

	GetDailyHighlights(ctx context.Context) ([]model.Story, error)
}

var _ Backend = (*gateway.Client)(nil)
