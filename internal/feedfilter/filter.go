// Package feedfilter は記事コレクションをフィルタ条件で絞り込む純粋関数を提供する。
// 入力を変更せず、元の順序を保つ。
package feedfilter

import (
	"strings"
	"time"

	"github.com/hitoshi/newsaic/internal/model"
)

// FallbackCategories はセクション情報を取得できない場合のカテゴリ一覧。
var FallbackCategories = []string{
	model.CategoryAll,
	"Technology",
	"Business",
	"Sport",
	"Film",
	"Science",
	"Life and style",
	"Politics",
}

// Apply はフィルタ条件に従ってarticlesを絞り込んだ新しいスライスを返す。
// nowはtodayフィードの基準日時で、その所在地の暦日で比較する。
func Apply(articles []model.Article, spec model.FilterSpec, now time.Time) []model.Article {
	out := make([]model.Article, 0, len(articles))
	query := strings.ToLower(strings.TrimSpace(spec.Query))
	category := strings.TrimSpace(spec.Category)

	for _, a := range articles {
		if spec.Feed == model.FeedToday && !PublishedOn(a, now) {
			continue
		}
		// personalizedはサーバー側で絞り込み済みのため追加の条件は無い
		if category != "" && category != model.CategoryAll && !MatchesCategory(a, category) {
			continue
		}
		if query != "" && !MatchesQuery(a, query) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// PublishedOn は記事がnowと同じ暦日（nowの所在地基準）に公開されたかを判定する。
// 公開日時の無い記事は常にfalse。
func PublishedOn(a model.Article, now time.Time) bool {
	published, ok := a.PublishedAt()
	if !ok {
		return false
	}
	loc := now.Location()
	py, pm, pd := published.In(loc).Date()
	ny, nm, nd := now.Date()
	return py == ny && pm == nm && pd == nd
}

// MatchesCategory はセクション名の完全一致、またはセクションIDと小文字化したカテゴリの一致を判定する。
func MatchesCategory(a model.Article, category string) bool {
	return a.SectionName == category || a.SectionID == strings.ToLower(category)
}

// MatchesQuery はタイトル・見出し・要約・本文のいずれかにqueryが含まれるかを大文字小文字を区別せず判定する。
func MatchesQuery(a model.Article, query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{a.WebTitle, a.Headline, a.TrailText, a.BodyText} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Categories はカテゴリ選択肢を返す。先頭は常に "All"。
// sectionsが空の場合はFallbackCategoriesを返す。
func Categories(sections []model.Section) []string {
	if len(sections) == 0 {
		out := make([]string, len(FallbackCategories))
		copy(out, FallbackCategories)
		return out
	}
	out := make([]string, 0, len(sections)+1)
	out = append(out, model.CategoryAll)
	seen := map[string]bool{model.CategoryAll: true}
	for _, s := range sections {
		name := strings.TrimSpace(s.WebTitle)
		if name == "" {
			name = s.Key()
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
