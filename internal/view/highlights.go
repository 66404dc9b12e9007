package view

import (
	"net/url"
	"strings"

	g "github.com/maragudk/gomponents"
	c "github.com/maragudk/gomponents/components"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

// Highlights はハイライトページの描画データ。
type Highlights struct {
	Stories  []model.Story
	Selected *model.Story
	Ref      string // ?story= の値
	NotFound string // Refに一致するストーリーが無い場合のメッセージ
	Error    string
}

// StoryHref はストーリーを選択するリンクを返す。
func StoryHref(s model.Story) string {
	ref := s.URL
	if ref == "" {
		ref = s.Key()
	}
	return "/highlights?" + url.Values{"story": {ref}}.Encode()
}

func storyTitle(s model.Story) string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return "Untitled story"
}

// HighlightsPage はストーリー一覧と選択中のストーリーを描画する。
func HighlightsPage(m Meta, d Highlights) g.Node {
	m.Title = "Your Daily Highlights"
	if d.Error != "" {
		return Layout(m,
			h.H1(g.Text("Your Daily Highlights")),
			ErrorState("Error Loading Highlights", d.Error, "/highlights"),
		)
	}
	if len(d.Stories) == 0 {
		return Layout(m,
			h.H1(g.Text("Your Daily Highlights")),
			EmptyState("No highlights available yet", "Your personalized highlights will appear here once they're generated."),
		)
	}

	items := make([]g.Node, 0, len(d.Stories))
	for _, s := range d.Stories {
		selected := d.Selected != nil && d.Selected.Key() == s.Key()
		items = append(items, h.Li(c.Classes{"active": selected},
			h.A(h.Href(StoryHref(s)), g.Text(storyTitle(s))),
		))
	}

	var detail g.Node
	switch {
	case d.Selected != nil:
		detail = storyDetail(*d.Selected)
	case d.Ref != "":
		msg := d.NotFound
		if msg == "" {
			msg = "The story you're looking for isn't in today's highlights."
		}
		detail = h.Div(h.Class("error"),
			h.H2(g.Text("Story not found")),
			h.P(g.Text(msg)),
		)
	default:
		detail = EmptyState("Select a story to read and listen.", "")
	}

	return Layout(m,
		h.H1(g.Text("Your Daily Highlights")),
		h.P(g.Text("Personalized news stories with audio narration")),
		h.Div(h.Class("highlights"),
			h.Ol(h.Class("story-list"), g.Group(items)),
			detail,
		),
	)
}

func storyDetail(s model.Story) g.Node {
	sources := make([]g.Node, 0, len(s.SourceArticles))
	for _, a := range s.SourceArticles {
		label := ArticleTitle(a)
		if href := ArticleHref(a); href != "" {
			sources = append(sources, h.Li(h.A(h.Href(href), g.Text(label))))
		} else {
			sources = append(sources, h.Li(g.Text(label)))
		}
	}

	return h.Article(h.Class("story"),
		h.H2(g.Text(storyTitle(s))),
		g.If(s.HasNarration(), h.Div(h.Class("narration"),
			h.Span(g.Text("Listen to this story")),
			h.Audio(h.Controls(), g.Attr("preload", "none"), h.Src(s.Narration)),
		)),
		storyParagraphs(s.BodyText),
		g.If(len(sources) > 0, h.Div(
			h.H3(g.Text("Source Articles")),
			h.Ul(g.Group(sources)),
		)),
	)
}

func storyParagraphs(text string) g.Node {
	var paras []g.Node
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, h.P(g.Text(p)))
		}
	}
	return g.Group(paras)
}
