package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/newsaic/internal/model"
)

// noAnswer は回答が得られなかった場合の表示文言。
const noAnswer = "No answer found."

// ListParams は記事一覧取得の条件。
type ListParams struct {
	Preferred bool   // サーバー側のパーソナライズを要求する
	Query     string // サーバー側の全文検索クエリ
	Page      int    // 1始まり。0は指定なし
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Preferred {
		q.Set("preferred", "true")
	}
	if s := strings.TrimSpace(p.Query); s != "" {
		q.Set("q", s)
	}
	if p.Page > 1 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	return q
}

func (c *Client) articlePath(id string, suffix ...string) string {
	parts := append([]string{strings.TrimSuffix(c.paths.Articles, "/"), url.PathEscape(id)}, suffix...)
	return strings.Join(parts, "/") + "/"
}

// ListArticles は記事一覧を取得する。
// ページネーションエンベロープと配列のどちらも順序を保ったフラットな列に正規化する。
func (c *Client) ListArticles(ctx context.Context, params ListParams) ([]model.Article, error) {
	articles, _, err := getList[model.Article](ctx, c, "list_articles", c.paths.Articles, params.values())
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// SearchArticles はサーバー側の検索結果を1ページ取得する。
// ページ送り用にcount/next/previousを保持する。
func (c *Client) SearchArticles(ctx context.Context, query string, page int) (*model.ArticlePage, error) {
	if page < 1 {
		page = 1
	}
	articles, env, err := getList[model.Article](ctx, c, "search_articles", c.paths.Articles, ListParams{Query: query, Page: page}.values())
	if err != nil {
		return nil, err
	}
	result := &model.ArticlePage{Results: articles, Count: len(articles)}
	if env != nil {
		result.Count = env.Count
		result.Next = env.Next
		result.Previous = env.Previous
	}
	return result, nil
}

// GetArticle は記事を1件取得する。
// 存在しない場合はnot_foundエラーを返し、通信エラーとは区別する。
func (c *Client) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.NewArticleNotFoundError(id)
	}
	var article model.Article
	if _, err := c.do(ctx, "get_article", http.MethodGet, c.articlePath(id), nil, nil, &article); err != nil {
		if model.IsNotFound(err) {
			return nil, model.NewArticleNotFoundError(id)
		}
		return nil, err
	}
	return &article, nil
}

// GetSimilarArticles は関連記事を取得する。
// 失敗時はエラーを返さず空の列を返す。
func (c *Client) GetSimilarArticles(ctx context.Context, id string) []model.Article {
	articles, _, err := getList[model.Article](ctx, c, "similar_articles", c.articlePath(id, "similar"), nil)
	if err != nil {
		c.logger.Debug("関連記事の取得に失敗しました",
			slog.String("article_id", id),
			slog.String("error", err.Error()),
		)
		return []model.Article{}
	}
	return articles
}

// GetRecommendations はパーソナライズされたおすすめ記事を取得する。
// 専用セクションでエラー表示するため、失敗はそのまま返す。
func (c *Client) GetRecommendations(ctx context.Context) ([]model.Article, error) {
	articles, _, err := getList[model.Article](ctx, c, "recommendations", c.paths.Articles, ListParams{Preferred: true}.values())
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// ListSections はセクションのメタデータを取得する。
func (c *Client) ListSections(ctx context.Context) ([]model.Section, error) {
	sections, _, err := getList[model.Section](ctx, c, "list_sections", c.paths.ArticleSections, nil)
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// AskQuestion は記事に関する質問をバックエンドに送り、回答を返す。
func (c *Client) AskQuestion(ctx context.Context, id, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", model.NewValidationError("質問を入力してください。", map[string]string{"question": "This field may not be blank."})
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if _, err := c.do(ctx, "ask_question", http.MethodPost, c.articlePath(id, "qa"), nil, map[string]string{"question": question}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Answer) == "" {
		return noAnswer, nil
	}
	return out.Answer, nil
}
