package view

import (
	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

// BookmarksPage はブックマーク一覧を描画する。
func BookmarksPage(m Meta, articles []model.Article, errMsg string) g.Node {
	m.Title = "Your Bookmarks"
	if errMsg != "" {
		return Layout(m,
			h.H1(g.Text("Your Bookmarks")),
			ErrorState("Error Loading Bookmarks", errMsg, "/bookmarks"),
		)
	}

	var body g.Node
	if len(articles) == 0 {
		body = EmptyState("No bookmarks yet", "Bookmark articles to read them later.")
	} else {
		items := make([]g.Node, 0, len(articles))
		for _, a := range articles {
			items = append(items, h.Div(h.Class("bookmark-item"),
				ArticleCard(a, m.Now),
				removeBookmarkForm(m.CSRFToken, a),
			))
		}
		body = h.Div(h.Class("grid"), g.Group(items))
	}

	return Layout(m,
		h.H1(g.Text("Your Bookmarks")),
		h.P(g.Text("Articles you've saved for later")),
		body,
	)
}

func removeBookmarkForm(csrf string, a model.Article) g.Node {
	href := ArticleHref(a)
	if href == "" {
		return nil
	}
	return h.FormEl(h.Method("post"), h.Action(href+"/bookmark"),
		CSRFField(csrf),
		h.Input(h.Type("hidden"), h.Name("action"), h.Value("remove")),
		h.Input(h.Type("hidden"), h.Name("next"), h.Value("/bookmarks")),
		h.Button(h.Type("submit"), g.Text("Remove")),
	)
}
