package view

import (
	"html"
	"strings"

	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/security"
)

// ArticleDetail は記事詳細ページの描画データ。
type ArticleDetail struct {
	Article    model.Article
	BodyHTML   string // サニタイズ済みの本文
	Bookmarked bool
	Similar    []model.Article
	Question   string
	Answer     string
	QAError    string
	Message    FormMessage
}

// ArticleDetailPage は記事詳細を描画する。
func ArticleDetailPage(m Meta, d ArticleDetail) g.Node {
	a := d.Article
	title := ArticleTitle(a)
	m.Title = title
	published, _ := a.PublishedAt()
	href := ArticleHref(a)

	return Layout(m,
		h.Article(h.Class("article-detail"),
			h.Span(h.Class("badge"), g.Text(ArticleCategory(a))),
			h.H1(g.Text(title)),
			h.P(h.Class("card-meta"),
				h.Span(g.Text(FormatAuthors(a.Authors))),
				g.Text(" · "),
				h.Span(g.Text(FormatDate(published))),
			),
			d.Message.node(),
			g.If(m.Session.Authenticated, bookmarkToggle(m.CSRFToken, href, d.Bookmarked)),
			g.If(HasThumbnail(a), h.Img(h.Class("hero"), h.Src(ThumbnailSrc(a.Thumbnail)), h.Alt(title))),
			g.If(a.TrailText != "", h.P(h.Class("lead"), g.Text(security.PlainText(a.TrailText)))),
			articleBody(d.BodyHTML),
			g.If(m.Session.Authenticated, qaSection(m.CSRFToken, href, d)),
			g.If(a.WebURL != "", h.P(
				h.A(h.Href(a.WebURL), h.Target("_blank"), h.Rel("noopener noreferrer"), g.Text("Read original article on Guardian")),
			)),
		),
		h.Section(h.Class("related"),
			h.H2(g.Text("Related articles")),
			NewsFeed(d.Similar, m.Now, EmptyState("No related articles found.", "")),
		),
	)
}

func articleBody(body string) g.Node {
	if strings.TrimSpace(body) == "" {
		return h.P(h.Class("state"), g.Text("No description available"))
	}
	return h.Div(h.Class("article-body"), g.Raw(body))
}

func bookmarkToggle(csrf, href string, bookmarked bool) g.Node {
	action, label := "add", "Bookmark"
	if bookmarked {
		action, label = "remove", "Bookmarked"
	}
	return h.FormEl(h.Method("post"), h.Action(href+"/bookmark"), h.Class("bookmark-toggle"),
		CSRFField(csrf),
		h.Input(h.Type("hidden"), h.Name("action"), h.Value(action)),
		h.Button(h.Type("submit"), g.Attr("aria-pressed", boolString(bookmarked)), g.Text(label)),
	)
}

func qaSection(csrf, href string, d ArticleDetail) g.Node {
	return h.Section(h.Class("qa"),
		h.H2(g.Text("Ask about this article")),
		h.FormEl(h.Method("post"), h.Action(href+"/qa"), h.Class("stack"),
			CSRFField(csrf),
			h.Textarea(h.Name("question"), h.Rows("3"), h.Placeholder("Type your question here..."), g.Text(d.Question)),
			h.Button(h.Type("submit"), g.Text("Ask")),
		),
		g.If(d.QAError != "", h.Div(h.Class("error"), g.Text(d.QAError))),
		g.If(d.Answer != "", h.P(h.Class("answer"), h.Strong(g.Text("Answer: ")), g.Text(d.Answer))),
	)
}

// PlainTextBody は改行区切りのプレーンテキスト本文を段落のHTMLに変換する。
// 呼び出し側でサニタイザに通してから描画する。
func PlainTextBody(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	return b.String()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
