package view

import (
	"net/url"

	g "github.com/maragudk/gomponents"
	c "github.com/maragudk/gomponents/components"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

// FeedPage はトップストーリー・カテゴリページの描画データ。
type FeedPage struct {
	Heading    string
	BasePath   string // フィード・カテゴリ切り替えリンクの基準パス
	Filter     model.FilterSpec
	Articles   []model.Article
	Categories []string
	Loading    bool
}

var feedLabels = []struct {
	Feed  model.FeedSelector
	Label string
}{
	{model.FeedGeneral, "General"},
	{model.FeedPersonalized, "For you"},
	{model.FeedToday, "Today"},
}

// TopStoriesPage はフィード選択・カテゴリ絞り込み付きのニュース一覧を描画する。
func TopStoriesPage(m Meta, p FeedPage) g.Node {
	if m.Title == "" {
		m.Title = p.Heading
	}
	return Layout(m,
		h.H1(g.Text(p.Heading)),
		FeedSelector(p.BasePath, p.Filter, m.Session.Authenticated),
		CategoryFilter(p.BasePath, p.Filter, p.Categories),
		filterQueryForm(p.BasePath, p.Filter),
		feedBody(m, p),
	)
}

func (m Meta) reloadURL() string {
	if m.Reload != "" {
		return m.Reload
	}
	return m.Path
}

func feedBody(m Meta, p FeedPage) g.Node {
	if p.Loading {
		return Loading("Loading articles...", m.reloadURL())
	}
	hint := "Check back later for the latest news"
	if p.Filter.Category != model.CategoryAll || p.Filter.Query != "" || p.Filter.Feed == model.FeedToday {
		hint = "No articles match the current filters."
	}
	empty := h.Div(
		EmptyState("No articles found", hint),
		h.P(h.Class("state"), h.A(h.Href(p.BasePath+"?refresh=1"), g.Text("Refresh"))),
	)
	return NewsFeed(p.Articles, m.Now, empty)
}

// FeedSelector はフィード種別の切り替えリンクを描画する。
// 未認証の場合はpersonalizedを出さない。
func FeedSelector(base string, f model.FilterSpec, authenticated bool) g.Node {
	links := make([]g.Node, 0, len(feedLabels))
	for _, fl := range feedLabels {
		if fl.Feed == model.FeedPersonalized && !authenticated {
			continue
		}
		q := url.Values{"feed": {string(fl.Feed)}}
		links = append(links, h.A(h.Href(base+"?"+q.Encode()), c.Classes{"active": f.Feed == fl.Feed}, g.Text(fl.Label)))
	}
	return h.Div(h.Class("pills feed-selector"), g.Group(links))
}

// CategoryFilter はカテゴリの切り替えリンクを描画する。
// personalizedフィードではサーバー側で絞り込むため表示しない。
func CategoryFilter(base string, f model.FilterSpec, categories []string) g.Node {
	if f.Feed == model.FeedPersonalized {
		return nil
	}
	links := make([]g.Node, 0, len(categories))
	for _, cat := range categories {
		q := url.Values{"category": {cat}}
		links = append(links, h.A(h.Href(base+"?"+q.Encode()), c.Classes{"active": f.Category == cat}, g.Text(cat)))
	}
	return h.Div(h.Class("pills category-filter"), g.Group(links))
}

func filterQueryForm(base string, f model.FilterSpec) g.Node {
	return h.FormEl(h.Method("get"), h.Action(base), h.Class("filter-query"),
		h.Input(h.Type("text"), h.Name("filter"), h.Value(f.Query), h.Placeholder("Filter these articles...")),
		h.Button(h.Type("submit"), g.Text("Filter")),
	)
}

// HomePage はホームページの描画データ。
type HomePage struct {
	Articles        []model.Article
	Highlights      []model.Story
	HighlightsError string
	Recommendations []model.Article
	RecError        string
	Loading         bool
}

// featuredCount はホームの先頭に表示する記事数。
const featuredCount = 6

// Home はホームページを描画する。認証済みの場合はハイライトとおすすめを含める。
func Home(m Meta, p HomePage) g.Node {
	m.Title = "Home"
	if p.Loading {
		return Layout(m, Loading("Loading...", m.reloadURL()))
	}

	var nodes []g.Node
	if m.Session.Authenticated {
		nodes = append(nodes,
			h.H1(g.Text("Your briefing")),
			h.Section(
				h.H2(g.Text("Your highlights")),
				highlightsTeaser(p.Highlights, p.HighlightsError),
			),
			h.Section(
				h.H2(g.Text("Recommended for you")),
				recommendationsBody(m, p.Recommendations, p.RecError, "/"),
			),
		)
	}

	top, more := p.Articles, []model.Article(nil)
	if len(top) > featuredCount {
		top, more = p.Articles[:featuredCount], p.Articles[featuredCount:]
	}
	nodes = append(nodes, h.Section(
		h.H2(g.Text("Top stories")),
		NewsFeed(top, m.Now, EmptyState("No articles found", "Check back later for the latest news")),
	))
	if len(more) > 0 {
		nodes = append(nodes, h.Section(
			h.H2(g.Text("More stories")),
			NewsFeed(more, m.Now, nil),
		))
	}
	return Layout(m, nodes...)
}

func highlightsTeaser(stories []model.Story, errMsg string) g.Node {
	if errMsg != "" {
		return ErrorState("Error Loading Highlights", errMsg, "/")
	}
	if len(stories) == 0 {
		return EmptyState("No highlights yet", "Your personalized highlights will appear here once they're generated.")
	}
	items := make([]g.Node, 0, 3)
	for i, s := range stories {
		if i == 3 {
			break
		}
		items = append(items, h.Li(h.A(h.Href(StoryHref(s)), g.Text(storyTitle(s)))))
	}
	return h.Div(
		h.Ul(g.Group(items)),
		h.A(h.Href("/highlights"), g.Text("View all highlights")),
	)
}

// ForYouPage はおすすめ記事ページを描画する。
func ForYouPage(m Meta, recs []model.Article, errMsg string) g.Node {
	m.Title = "For you"
	return Layout(m,
		h.H1(g.Text("Recommended for you")),
		recommendationsBody(m, recs, errMsg, "/for-you"),
	)
}

func recommendationsBody(m Meta, recs []model.Article, errMsg, retry string) g.Node {
	if errMsg != "" {
		return ErrorState("Error Loading Recommendations", errMsg, retry)
	}
	return NewsFeed(recs, m.Now,
		EmptyState("No recommendations available yet.", "Update your preferences in Settings."),
	)
}

// LoginForm はログインフォームを描画する。
func LoginForm(csrf, next, username, errMsg string) g.Node {
	return h.FormEl(h.Method("post"), h.Action("/login"), h.Class("stack login-form"),
		CSRFField(csrf),
		h.Input(h.Type("hidden"), h.Name("next"), h.Value(next)),
		FormMessage{Error: errMsg}.node(),
		h.Label(h.For("username"), g.Text("Username")),
		h.Input(h.ID("username"), h.Type("text"), h.Name("username"), h.Value(username), h.Required()),
		h.Label(h.For("password"), g.Text("Password")),
		h.Input(h.ID("password"), h.Type("password"), h.Name("password"), h.Required()),
		h.Button(h.Type("submit"), g.Text("Login")),
		h.P(g.Text("Don't have an account? "), h.A(h.Href("/register"), g.Text("Register"))),
	)
}

// LoginPage はログインページを描画する。
func LoginPage(m Meta, next, username, errMsg string) g.Node {
	m.Title = "Login"
	return Layout(m,
		h.H1(g.Text("Login")),
		LoginForm(m.CSRFToken, next, username, errMsg),
	)
}
