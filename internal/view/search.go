package view

import (
	"fmt"
	"net/url"
	"strconv"

	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

// SearchResults は検索ページの描画データ。
type SearchResults struct {
	Query  string
	Page   int
	Result *model.ArticlePage
	Error  string
}

// SearchPage は検索結果とページ送りを描画する。
func SearchPage(m Meta, s SearchResults) g.Node {
	m.Title = "Search"
	m.Query = s.Query
	heading := "Search Articles"
	if s.Query != "" {
		heading = fmt.Sprintf("Search results for: %q", s.Query)
	}
	return Layout(m,
		h.H1(g.Text(heading)),
		searchBody(m, s),
	)
}

func searchBody(m Meta, s SearchResults) g.Node {
	switch {
	case s.Query == "":
		return EmptyState("Enter a query in the search bar above to begin a search.", "")
	case s.Error != "":
		return ErrorState("Search failed", s.Error, searchHref(s.Query, s.Page))
	case s.Result == nil || len(s.Result.Results) == 0:
		return EmptyState(fmt.Sprintf("No results found for %q.", s.Query), "Try different keywords.")
	}

	page := s.Page
	if page < 1 {
		page = 1
	}
	return h.Div(
		h.P(h.Class("result-count"), g.Textf("%d results", s.Result.Count)),
		NewsFeed(s.Result.Results, m.Now, nil),
		h.Nav(h.Class("pagination"), g.Attr("aria-label", "Pagination"),
			g.If(s.Result.HasPrevious(), h.A(h.Href(searchHref(s.Query, page-1)), h.Rel("prev"), g.Text("Previous Page"))),
			h.Span(g.Textf(" Page %d ", page)),
			g.If(s.Result.HasNext(), h.A(h.Href(searchHref(s.Query, page+1)), h.Rel("next"), g.Text("Next Page"))),
		),
	)
}

func searchHref(query string, page int) string {
	q := url.Values{"q": {query}}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return "/search?" + q.Encode()
}
