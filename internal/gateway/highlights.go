package gateway

import (
	"context"
	"net/url"
	"strings"

	"github.com/hitoshi/newsaic/internal/model"
)

// GetDailyHighlights は当日のハイライトストーリーを順序どおりに取得する。
// ハイライトが無いことはエラーではなく空の列として返す。
// 相対パスのナレーションURLはバックエンドのベースURLで解決する。
func (c *Client) GetDailyHighlights(ctx context.Context) ([]model.Story, error) {
	stories, _, err := getList[model.Story](ctx, c, "daily_highlights", c.paths.DailyHighlights, nil)
	if err != nil {
		return nil, err
	}
	for i := range stories {
		stories[i].Narration = c.absoluteURL(stories[i].Narration)
	}
	return stories, nil
}

func (c *Client) absoluteURL(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	base := *c.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/"), RawQuery: u.RawQuery}).String()
}

// FindStory はref（URLまたはID）に一致するストーリーを返す。
func FindStory(stories []model.Story, ref string) (model.Story, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Story{}, false
	}
	for _, s := range stories {
		if s.Matches(ref) {
			return s, true
		}
	}
	return model.Story{}, false
}
