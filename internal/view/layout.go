// Package view はgomponentsでHTMLページを描画する。
//
// 各ページ関数は描画に必要なデータだけを受け取り、ネットワークI/Oは行わない。
package view

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	g "github.com/maragudk/gomponents"
	c "github.com/maragudk/gomponents/components"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

// CSRFFieldName はフォームでCSRFトークンを送るフィールド名。
const CSRFFieldName = "csrf_token"

// Meta は全ページ共通の描画情報。
type Meta struct {
	Title     string
	Path      string
	Reload    string // 読み込み中の再読み込み先。空ならPath
	Session   model.Session
	CSRFToken string
	Query     string
	Now       time.Time
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f9fafb;color:#111827}
.nav{display:flex;gap:1rem;align-items:center;padding:.75rem 1.5rem;background:#fff;border-bottom:1px solid #e5e7eb}
.nav a{color:#374151;text-decoration:none}.nav a.active{color:#4f46e5;font-weight:600}
.brand{font-weight:700;font-size:1.25rem}.spacer{flex:1}
main{max-width:72rem;margin:0 auto;padding:1.5rem}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(18rem,1fr));gap:1.25rem}
.card{background:#fff;border-radius:.5rem;overflow:hidden;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.card-thumb{width:100%;height:12rem;object-fit:cover;background:#e5e7eb}
.card-body{padding:1rem}.card-meta{display:flex;justify-content:space-between;font-size:.85rem;color:#6b7280}
.badge{display:inline-block;padding:.1rem .6rem;border-radius:999px;background:#eef2ff;color:#4f46e5;font-size:.75rem;text-transform:uppercase}
.pills a{margin-right:.5rem;padding:.25rem .75rem;border-radius:999px;background:#f3f4f6;color:#374151;text-decoration:none}
.pills a.active{background:#4f46e5;color:#fff}
.state{text-align:center;padding:2.5rem 1rem;color:#6b7280}
.error{background:#fef2f2;border:1px solid #fecaca;color:#991b1b;padding:1rem;border-radius:.5rem}
.success{background:#ecfdf5;border:1px solid #a7f3d0;color:#065f46;padding:1rem;border-radius:.5rem}
.field-error{color:#b91c1c;font-size:.85rem}
form.stack label{display:block;margin-top:.75rem}
`

// Layout はナビゲーションを含むページ全体を描画する。
func Layout(m Meta, body ...g.Node) g.Node {
	title := "Newsaic"
	if m.Title != "" {
		title = m.Title + " | Newsaic"
	}
	return c.HTML5(c.HTML5Props{
		Title:    title,
		Language: "en",
		Head: []g.Node{
			h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
			g.El("style", g.Raw(styles)),
		},
		Body: []g.Node{
			Navbar(m),
			h.Main(g.Group(body)),
		},
	})
}

// Navbar はナビゲーションバーを描画する。
func Navbar(m Meta) g.Node {
	auth := m.Session.Authenticated
	return h.Nav(h.Class("nav"),
		h.A(h.Class("brand"), h.Href("/"), g.Text("Newsaic")),
		navLink(m.Path, "/top-stories", "Top stories"),
		g.If(auth, navLink(m.Path, "/for-you", "For you")),
		g.If(auth, navLink(m.Path, "/highlights", "Highlights")),
		g.If(auth, navLink(m.Path, "/bookmarks", "Bookmarks")),
		h.Span(h.Class("spacer")),
		h.FormEl(h.Method("get"), h.Action("/search"), g.Attr("role", "search"),
			h.Input(h.Type("search"), h.Name("q"), h.Value(m.Query), h.Placeholder("Search articles...")),
		),
		userMenu(m),
	)
}

func navLink(current, href, label string) g.Node {
	active := current == href || (href != "/" && strings.HasPrefix(current, href+"/"))
	return h.A(h.Href(href), c.Classes{"active": active}, g.Text(label))
}

func userMenu(m Meta) g.Node {
	if !m.Session.Authenticated {
		return g.Group([]g.Node{
			navLink(m.Path, "/login", "Login"),
			navLink(m.Path, "/register", "Register"),
		})
	}
	return g.Group([]g.Node{
		h.Span(g.Text(m.Session.User.DisplayName())),
		navLink(m.Path, "/settings", "Settings"),
		h.FormEl(h.Method("post"), h.Action("/logout"),
			CSRFField(m.CSRFToken),
			h.Button(h.Type("submit"), g.Text("Logout")),
		),
	})
}

// CSRFField はCSRFトークンのhidden入力を描画する。
func CSRFField(token string) g.Node {
	return h.Input(h.Type("hidden"), h.Name(CSRFFieldName), h.Value(token))
}

// Render はノードをHTMLとして書き込む。
// 描画に失敗した場合は部分的な出力を送らず500を返す。
func Render(w http.ResponseWriter, status int, node g.Node) error {
	var buf bytes.Buffer
	if err := node.Render(&buf); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
