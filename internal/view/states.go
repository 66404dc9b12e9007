package view

import (
	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"
)

// Loading は読み込み中の状態を描画する。refreshが空でなければ自動で再読み込みする。
func Loading(message, refresh string) g.Node {
	return h.Div(h.Class("state"), g.Attr("aria-busy", "true"),
		g.If(refresh != "", h.Meta(g.Attr("http-equiv", "refresh"), h.Content("1;url="+refresh))),
		h.P(g.Text(message)),
	)
}

// ErrorState はエラー状態を描画する。retryが空でなければ再試行リンクを出す。
func ErrorState(title, message, retry string) g.Node {
	return h.Div(h.Class("error"), g.Attr("role", "alert"),
		h.H2(g.Text(title)),
		h.P(g.Text(message)),
		g.If(retry != "", h.A(h.Href(retry), g.Text("Try again"))),
	)
}

// EmptyState は結果が0件の状態を描画する。
func EmptyState(title, hint string) g.Node {
	return h.Div(h.Class("state"),
		h.P(h.Class("empty-title"), g.Text(title)),
		g.If(hint != "", h.P(g.Text(hint))),
	)
}

// FormMessage はフォーム送信結果のメッセージを描画する。
type FormMessage struct {
	Success string
	Error   string
}

func (f FormMessage) node() g.Node {
	switch {
	case f.Error != "":
		return h.Div(h.Class("error"), g.Attr("role", "alert"), g.Text(f.Error))
	case f.Success != "":
		return h.Div(h.Class("success"), g.Text(f.Success))
	}
	return nil
}

// NotFoundPage は404ページを描画する。
func NotFoundPage(m Meta, title, message string) g.Node {
	if m.Title == "" {
		m.Title = title
	}
	return Layout(m,
		h.H1(g.Text(title)),
		h.Div(h.Class("error"), h.P(g.Text(message))),
		h.P(h.A(h.Href("/"), g.Text("Back to home"))),
	)
}

// ErrorPage は汎用エラーページを描画する。
func ErrorPage(m Meta, message, retry string) g.Node {
	if m.Title == "" {
		m.Title = "Error"
	}
	return Layout(m, ErrorState("Something went wrong", message, retry))
}

// LoginPromptPage は保護されたページへの未認証アクセス時に表示する。
func LoginPromptPage(m Meta, next string) g.Node {
	m.Title = "Login required"
	return Layout(m,
		h.H1(g.Text("Please log in")),
		h.P(g.Text("You need to be logged in to view this page.")),
		LoginForm(m.CSRFToken, next, "", ""),
	)
}
