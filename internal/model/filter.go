package model

import "strings"

// FeedSelector は表示するフィードの種類。
type FeedSelector string

// フィード種別
const (
	FeedGeneral      FeedSelector = "general"
	FeedPersonalized FeedSelector = "personalized"
	FeedToday        FeedSelector = "today"
)

// CategoryAll は全カテゴリを表す選択値。
const CategoryAll = "All"

// ParseFeedSelector は文字列をFeedSelectorに変換する。
// 空文字列はgeneralとして扱い、"foryou" はpersonalizedの別名として受け付ける。
func ParseFeedSelector(s string) (FeedSelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FeedGeneral):
		return FeedGeneral, nil
	case string(FeedPersonalized), "foryou", "for-you":
		return FeedPersonalized, nil
	case string(FeedToday):
		return FeedToday, nil
	}
	return "", NewInvalidFilterError(s)
}

// FilterSpec は表示中の記事を絞り込む条件。永続化されない一時的なUI状態。
type FilterSpec struct {
	Feed     FeedSelector `json:"feed"`
	Category string       `json:"category"`
	Query    string       `json:"query,omitempty"`
}

// DefaultFilterSpec は初期状態のフィルタを返す。
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{Feed: FeedGeneral, Category: CategoryAll}
}

// FilterDelta はFilterSpecへの部分更新。nilのフィールドは変更しない。
type FilterDelta struct {
	Feed     *FeedSelector
	Category *string
	Query    *string
}

// Merge はdeltaを適用した新しいFilterSpecを返す。
// フィードが変わった場合、カテゴリは常に "All" に戻る。
func (f FilterSpec) Merge(d FilterDelta) FilterSpec {
	next := f
	if d.Query != nil {
		next.Query = strings.TrimSpace(*d.Query)
	}
	if d.Category != nil {
		next.Category = normalizeCategory(*d.Category)
	}
	if d.Feed != nil && *d.Feed != f.Feed {
		next.Feed = *d.Feed
		next.Category = CategoryAll
	}
	if next.Feed == "" {
		next.Feed = FeedGeneral
	}
	if next.Category == "" {
		next.Category = CategoryAll
	}
	return next
}

func normalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" || strings.EqualFold(c, CategoryAll) {
		return CategoryAll
	}
	return c
}
