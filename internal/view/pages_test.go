package view

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	g "github.com/maragudk/gomponents"

	"github.com/hitoshi/newsaic/internal/model"
)

func render(t *testing.T, n g.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := n.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func assertContains(t *testing.T, html string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(html, want) {
			t.Errorf("output does not contain %q", want)
		}
	}
}

func assertNotContains(t *testing.T, html string, bads ...string) {
	t.Helper()
	for _, bad := range bads {
		if strings.Contains(html, bad) {
			t.Errorf("output must not contain %q", bad)
		}
	}
}

var testNow = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

func anonMeta() Meta {
	return Meta{Path: "/", CSRFToken: "tok", Now: testNow}
}

func authMeta() Meta {
	m := anonMeta()
	m.Session = model.Session{Authenticated: true, User: &model.User{Username: "alice", FirstName: "Alice"}}
	return m
}

// TestNavbar_AnonymousAndAuthenticated は認証状態でナビゲーションが切り替わることを検証する。
func TestNavbar_AnonymousAndAuthenticated(t *testing.T) {
	anon := render(t, Navbar(anonMeta()))
	assertContains(t, anon, `href="/login"`, `href="/register"`, `action="/search"`)
	assertNotContains(t, anon, `href="/bookmarks"`, `action="/logout"`)

	auth := render(t, Navbar(authMeta()))
	assertContains(t, auth, `href="/bookmarks"`, `href="/for-you"`, `action="/logout"`, "Alice", `value="tok"`)
	assertNotContains(t, auth, `href="/login"`)
}

// TestTopStoriesPage_States は一覧・空・読み込み中の各状態を検証する。
func TestTopStoriesPage_States(t *testing.T) {
	base := FeedPage{
		Heading:    "Top stories",
		BasePath:   "/top-stories",
		Filter:     model.DefaultFilterSpec(),
		Categories: []string{"All", "Sport"},
	}

	t.Run("一覧", func(t *testing.T) {
		p := base
		p.Articles = []model.Article{{ID: "1", Headline: "Match report", SectionName: "Sport"}}
		out := render(t, TopStoriesPage(anonMeta(), p))
		assertContains(t, out, "Match report", `href="/articles/1"`, "feed=today", "category=Sport")
		assertNotContains(t, out, "feed=personalized")
	})

	t.Run("空", func(t *testing.T) {
		p := base
		p.Filter.Category = "Sport"
		out := render(t, TopStoriesPage(anonMeta(), p))
		assertContains(t, out, "No articles found", "No articles match the current filters.", "refresh=1")
	})

	t.Run("読み込み中", func(t *testing.T) {
		p := base
		p.Loading = true
		out := render(t, TopStoriesPage(anonMeta(), p))
		assertContains(t, out, "Loading articles...", `http-equiv="refresh"`)
	})

	t.Run("personalizedではカテゴリを出さない", func(t *testing.T) {
		p := base
		p.Filter.Feed = model.FeedPersonalized
		out := render(t, TopStoriesPage(authMeta(), p))
		assertContains(t, out, "feed=personalized")
		assertNotContains(t, out, "category=Sport")
	})
}

// TestHome_Authenticated はハイライトとおすすめのセクションを検証する。
func TestHome_Authenticated(t *testing.T) {
	out := render(t, Home(authMeta(), HomePage{
		Highlights: []model.Story{{ID: "s1", Title: "Morning story"}},
		RecError:   "おすすめを取得できませんでした",
	}))
	assertContains(t, out, "Your briefing", "Morning story", "Error Loading Recommendations", "No articles found")
}

// TestArticleDetailPage は詳細ページの要素を検証する。
func TestArticleDetailPage(t *testing.T) {
	d := ArticleDetail{
		Article:    model.Article{ID: "9", Headline: "Space Exploration", WebURL: "https://www.theguardian.com/x"},
		BodyHTML:   "<p>Body</p>",
		Bookmarked: true,
		Answer:     "Because.",
	}

	out := render(t, ArticleDetailPage(authMeta(), d))
	assertContains(t, out,
		"Space Exploration", "<p>Body</p>", `action="/articles/9/bookmark"`, `value="remove"`,
		"Bookmarked", `action="/articles/9/qa"`, "Because.", "Read original article on Guardian",
		"No related articles found.",
	)

	anon := render(t, ArticleDetailPage(anonMeta(), d))
	assertNotContains(t, anon, `/articles/9/bookmark`, `/articles/9/qa`)
}

// TestSearchPage_States は検索ページの各状態を検証する。
func TestSearchPage_States(t *testing.T) {
	next := "https://api.example.com/articles/?page=3&q=space"
	prev := "https://api.example.com/articles/?q=space"

	tests := []struct {
		name  string
		s     SearchResults
		wants []string
	}{
		{"クエリ無し", SearchResults{}, []string{"Enter a query"}},
		{"エラー", SearchResults{Query: "space", Error: "通信エラー"}, []string{"Search failed", "通信エラー", "Try again"}},
		{"0件", SearchResults{Query: "space", Result: &model.ArticlePage{}}, []string{"No results found for"}},
		{"ページ送り", SearchResults{Query: "space", Page: 2, Result: &model.ArticlePage{
			Count: 30, Next: next, Previous: prev,
			Results: []model.Article{{ID: "1", Headline: "Spacecraft"}},
		}}, []string{"30 results", "Spacecraft", "page=3", "Previous Page", "Page 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, render(t, SearchPage(anonMeta(), tt.s)), tt.wants...)
		})
	}
}

// TestBookmarksPage_States はブックマークページの各状態を検証する。
func TestBookmarksPage_States(t *testing.T) {
	assertContains(t, render(t, BookmarksPage(authMeta(), nil, "")), "No bookmarks yet")
	assertContains(t, render(t, BookmarksPage(authMeta(), nil, "失敗")), "Error Loading Bookmarks", `href="/bookmarks"`)
	out := render(t, BookmarksPage(authMeta(), []model.Article{{ID: "5", Headline: "Saved"}}, ""))
	assertContains(t, out, "Saved", `action="/articles/5/bookmark"`, "Remove")
}

// TestHighlightsPage は選択中のストーリーと音声を検証する。
func TestHighlightsPage(t *testing.T) {
	stories := []model.Story{
		{ID: "1", Title: "First", BodyText: "Para one.\n\nPara two.", Narration: "https://cdn.example.com/1.mp3"},
		{ID: "2", Title: "Second"},
	}

	out := render(t, HighlightsPage(authMeta(), Highlights{Stories: stories, Selected: &stories[0], Ref: "1"}))
	assertContains(t, out, "<audio", "https://cdn.example.com/1.mp3", "<p>Para one.</p>", "story=2")

	missing := render(t, HighlightsPage(authMeta(), Highlights{Stories: stories, Ref: "zzz"}))
	assertContains(t, missing, "Story not found")

	empty := render(t, HighlightsPage(authMeta(), Highlights{}))
	assertContains(t, empty, "No highlights available yet")
}

// TestRegisterPage_FieldErrors はフィールドごとのエラー表示を検証する。
func TestRegisterPage_FieldErrors(t *testing.T) {
	out := render(t, RegisterPage(anonMeta(), RegisterForm{
		Input:    model.Registration{Username: "bob", Password: "secret"},
		Sections: []model.Section{{SectionID: "sport", WebTitle: "Sport"}},
		Errors: FieldErrors{
			"username":           "A user with that username already exists.",
			"preferred_sections": "Please select at least one preferred section.",
		},
	}))
	assertContains(t, out,
		`value="bob"`, "A user with that username already exists.",
		"Please select at least one preferred section.", `name="persona.tone"`, `value="sport"`,
	)
	assertNotContains(t, out, `value="secret"`)
}

// TestSettingsPage はフォームごとの結果表示を検証する。
func TestSettingsPage(t *testing.T) {
	u := &model.User{
		Username:          "alice",
		Email:             "alice@example.com",
		Persona:           &model.Persona{Tone: "casual"},
		PreferredSections: []model.SectionPreference{{SectionID: "sport"}},
	}
	out := render(t, SettingsPage(authMeta(), Settings{
		User:          u,
		Sections:      []model.Section{{SectionID: "sport", WebTitle: "Sport"}, {SectionID: "film", WebTitle: "Film"}},
		Profile:       FormMessage{Success: "Profile updated."},
		PersonaErrors: FieldErrors{"tone": "Invalid choice."},
	}))
	assertContains(t, out, "Profile updated.", "Invalid choice.", `value="alice@example.com"`,
		`action="/settings/profile"`, `action="/settings/persona"`, `action="/settings/sections"`)
	assertContains(t, out, `<option value="casual" selected>`)

	failed := render(t, SettingsPage(authMeta(), Settings{Error: "取得失敗"}))
	assertContains(t, failed, "Error Loading Profile", "取得失敗")
}

// TestRender はContent-Typeとステータスコードを検証する。
func TestRender(t *testing.T) {
	w := httptest.NewRecorder()
	if err := Render(w, http.StatusNotFound, NotFoundPage(anonMeta(), "Article Not Found", "gone")); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	assertContains(t, w.Body.String(), "<html", "Article Not Found")
}
