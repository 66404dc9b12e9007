package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/newsaic/internal/model"
)

// BookmarkResult はブックマーク操作の結果。
type BookmarkResult struct {
	Success    bool
	Bookmarked bool
	Detail     string
}

type bookmarkResponse struct {
	Bookmarked bool   `json:"bookmarked"`
	Detail     string `json:"detail"`
}

// bookmarkRef はref（記事IDまたは記事の自己参照URL）をブックマークAPIの参照に変換する。
func (c *Client) bookmarkRef(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return strings.TrimSuffix(ref, "/") + "/bookmark/"
	}
	return c.articlePath(ref, "bookmark")
}

// Bookmark は記事をブックマークする。
// 既にブックマーク済みの場合もBookmarked=trueの成功として返す。
func (c *Client) Bookmark(ctx context.Context, ref string) (BookmarkResult, error) {
	var out bookmarkResponse
	if _, err := c.do(ctx, "bookmark", http.MethodPost, c.bookmarkRef(ref), nil, nil, &out); err != nil {
		return BookmarkResult{}, err
	}
	return BookmarkResult{Success: true, Bookmarked: true, Detail: out.Detail}, nil
}

// Unbookmark は記事のブックマークを解除する。
// ブックマークが存在しない場合（400かつbookmarked=false）も成功として返す。
func (c *Client) Unbookmark(ctx context.Context, ref string) (BookmarkResult, error) {
	var out bookmarkResponse
	raw, err := c.do(ctx, "unbookmark", http.MethodDelete, c.bookmarkRef(ref), nil, nil, &out)
	if err != nil {
		if raw != nil && raw.Status == http.StatusBadRequest {
			var body struct {
				Bookmarked *bool  `json:"bookmarked"`
				Detail     string `json:"detail"`
			}
			if json.Unmarshal(bytes.TrimSpace(raw.Body), &body) == nil && body.Bookmarked != nil && !*body.Bookmarked {
				return BookmarkResult{Success: true, Bookmarked: false, Detail: body.Detail}, nil
			}
		}
		return BookmarkResult{}, err
	}
	return BookmarkResult{Success: true, Bookmarked: false, Detail: out.Detail}, nil
}

// CheckBookmark は記事がブックマーク済みかを確認する。
func (c *Client) CheckBookmark(ctx context.Context, ref string) (BookmarkResult, error) {
	var out bookmarkResponse
	if _, err := c.do(ctx, "check_bookmark", http.MethodGet, c.bookmarkRef(ref), nil, nil, &out); err != nil {
		return BookmarkResult{}, err
	}
	return BookmarkResult{Success: true, Bookmarked: out.Bookmarked}, nil
}

// bookmarkRecord はブックマーク一覧の1レコード。
// articleはネストした記事、記事URL文字列、または省略（レコード自体が記事）のいずれか。
type bookmarkRecord struct {
	article model.Article
}

func (r *bookmarkRecord) UnmarshalJSON(b []byte) error {
	var wrapper struct {
		Article json.RawMessage `json:"article"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return err
	}
	raw := bytes.TrimSpace(wrapper.Article)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return json.Unmarshal(b, &r.article)
	case raw[0] == '"':
		var u string
		if err := json.Unmarshal(raw, &u); err != nil {
			return err
		}
		r.article = model.Article{URL: u}
		return nil
	}
	return json.Unmarshal(raw, &r.article)
}

// ListBookmarks はブックマークした記事を順序を保ったフラットな列で取得する。
// 記事URLのみのレコードは記事を取得して補完し、取得できないものはURLのみで返す。
func (c *Client) ListBookmarks(ctx context.Context) ([]model.Article, error) {
	records, _, err := getList[bookmarkRecord](ctx, c, "list_bookmarks", c.paths.Bookmarks, nil)
	if err != nil {
		return nil, err
	}
	articles := make([]model.Article, 0, len(records))
	for _, rec := range records {
		a := rec.article
		if a.Key() == "" && a.Headline == "" && a.WebTitle == "" && a.URL != "" {
			if full, err := c.getArticleByURL(ctx, a.URL); err == nil {
				a = *full
			}
		}
		a.Bookmarked = true
		articles = append(articles, a)
	}
	return articles, nil
}

func (c *Client) getArticleByURL(ctx context.Context, ref string) (*model.Article, error) {
	var article model.Article
	if _, err := c.do(ctx, "get_article", http.MethodGet, ref, nil, nil, &article); err != nil {
		return nil, err
	}
	if article.URL == "" {
		article.URL = ref
	}
	return &article, nil
}
