package view

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/security"
)

// previewLength はカードに表示する概要の最大文字数。
const previewLength = 280

// ArticleTitle は表示用タイトルを返す。headlineを優先する。
func ArticleTitle(a model.Article) string {
	if t := strings.TrimSpace(a.Headline); t != "" {
		return t
	}
	if t := strings.TrimSpace(a.WebTitle); t != "" {
		return t
	}
	return "Untitled"
}

// ArticleDescription は概要をプレーンテキストで返す。
func ArticleDescription(a model.Article) string {
	for _, s := range []string{a.TrailText, a.BodyText} {
		if text := security.PlainText(s); text != "" {
			return security.Truncate(text, previewLength)
		}
	}
	return "No description available"
}

// ArticleCategory はセクション名を返す。
func ArticleCategory(a model.Article) string {
	if a.SectionName != "" {
		return a.SectionName
	}
	if a.SectionID != "" {
		return a.SectionID
	}
	return "News"
}

// FormatAuthors は著者名をカンマ区切りで返す。
func FormatAuthors(authors []model.Author) string {
	if len(authors) == 0 {
		return "Guardian Staff"
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.DisplayName())
	}
	return strings.Join(names, ", ")
}

// FormatDate は日付を "Jan 2, 2006" 形式で返す。
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 2, 2006")
}

// RelativeTime はnowからの経過時間を返す。7日以上前は日付を返す。
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	d := now.Sub(t)
	mins := int(d / time.Minute)
	hours := mins / 60
	days := hours / 24
	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return plural(mins, "minute") + " ago"
	case hours < 24:
		return plural(hours, "hour") + " ago"
	case days < 7:
		return plural(days, "day") + " ago"
	}
	return FormatDate(t)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// HasThumbnail はサムネイルURLがあるかを返す。
func HasThumbnail(a model.Article) bool {
	return strings.TrimSpace(a.Thumbnail) != ""
}

// ThumbnailSrc は外部画像をサムネイルプロキシ経由のURLに変換する。
func ThumbnailSrc(raw string) string {
	return "/media/thumbnail?url=" + url.QueryEscape(strings.TrimSpace(raw))
}

// ArticleHref は記事詳細ページのパスを返す。
func ArticleHref(a model.Article) string {
	id := a.BackendID()
	if id == "" {
		return ""
	}
	return "/articles/" + url.PathEscape(id)
}

// ArticleCard は記事カードを描画する。
func ArticleCard(a model.Article, now time.Time) g.Node {
	title := ArticleTitle(a)
	href := ArticleHref(a)
	published, _ := a.PublishedAt()

	titleNode := g.Text(title)
	if href != "" {
		titleNode = h.A(h.Href(href), g.Text(title))
	} else if a.WebURL != "" {
		titleNode = h.A(h.Href(a.WebURL), h.Target("_blank"), h.Rel("noopener noreferrer"), g.Text(title))
	}

	return h.Article(h.Class("card"),
		g.If(HasThumbnail(a), h.Img(h.Class("card-thumb"), h.Src(ThumbnailSrc(a.Thumbnail)), h.Alt(title), g.Attr("loading", "lazy"))),
		h.Div(h.Class("card-body"),
			h.Span(h.Class("badge"), g.Text(ArticleCategory(a))),
			h.H3(titleNode),
			h.P(h.Class("card-desc"), g.Text(ArticleDescription(a))),
			h.Div(h.Class("card-meta"),
				h.Span(g.Text(FormatAuthors(a.Authors))),
				h.Span(g.Attr("title", FormatDate(published)), g.Text(RelativeTime(published, now))),
			),
		),
	)
}

// NewsFeed は記事一覧を描画する。空の場合はempty状態を描画する。
func NewsFeed(articles []model.Article, now time.Time, empty g.Node) g.Node {
	if len(articles) == 0 {
		return empty
	}
	cards := make([]g.Node, 0, len(articles))
	for _, a := range articles {
		cards = append(cards, ArticleCard(a, now))
	}
	return h.Div(h.Class("grid"), g.Group(cards))
}
