package view

import (
	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

// RegisterForm は登録ページの描画データ。入力値は再表示に使う（パスワードを除く）。
type RegisterForm struct {
	Input    model.Registration
	Sections []model.Section
	Errors   FieldErrors
	Message  string
}

// RegisterPage は登録フォームを描画する。検証エラーはフィールドごとに表示する。
func RegisterPage(m Meta, f RegisterForm) g.Node {
	m.Title = "Register"
	in := f.Input
	selected := make([]string, 0, len(in.PreferredSections))
	for _, p := range in.PreferredSections {
		selected = append(selected, p.SectionID)
	}

	return Layout(m,
		h.H1(g.Text("Create your account")),
		FormMessage{Error: f.Message}.node(),
		h.FormEl(h.Method("post"), h.Action("/register"), h.Class("stack register-form"),
			CSRFField(m.CSRFToken),
			h.H2(g.Text("Account")),
			textField("Username", "username", "text", in.Username, f.Errors, h.Required()),
			textField("Email", "email", "email", in.Email, f.Errors, h.Required()),
			textField("Password", "password", "password", "", f.Errors, h.Required()),
			textField("Confirm password", "password_confirm", "password", "", f.Errors, h.Required()),
			h.H2(g.Text("Profile")),
			textField("First name", "first_name", "text", in.FirstName, f.Errors),
			textField("Last name", "last_name", "text", in.LastName, f.Errors),
			selectField("Gender", "gender", in.Gender, genderOptions, f.Errors),
			textField("Birthday", "birthday", "date", in.Birthday, f.Errors),
			h.H2(g.Text("Reading preferences")),
			personaFields(in.Persona, "persona.", f.Errors),
			sectionCheckboxes(f.Sections, selected, f.Errors),
			h.Button(h.Type("submit"), g.Text("Register")),
		),
		h.P(g.Text("Already have an account? "), h.A(h.Href("/login"), g.Text("Login"))),
	)
}
