package view

import (
	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

// Settings は設定ページの描画データ。フォームごとに結果を持つ。
type Settings struct {
	User     *model.User
	Sections []model.Section
	Error    string

	Profile        FormMessage
	ProfileErrors  FieldErrors
	Persona        FormMessage
	PersonaErrors  FieldErrors
	SectionsResult FormMessage
	SectionsErrors FieldErrors
}

// SettingsPage はプロフィール・文体設定・関心セクションの3つのフォームを描画する。
func SettingsPage(m Meta, s Settings) g.Node {
	m.Title = "Settings"
	if s.Error != "" || s.User == nil {
		msg := s.Error
		if msg == "" {
			msg = "Could not load your profile."
		}
		return Layout(m,
			h.H1(g.Text("Settings")),
			ErrorState("Error Loading Profile", msg, "/settings"),
		)
	}

	u := s.User
	persona := model.Persona{}
	if u.Persona != nil {
		persona = *u.Persona
	}

	return Layout(m,
		h.H1(g.Text("Settings")),
		h.P(g.Text("Manage your personal information and preferences")),

		h.Section(h.ID("profile"),
			h.H2(g.Text("Personal information")),
			s.Profile.node(),
			h.FormEl(h.Method("post"), h.Action("/settings/profile"), h.Class("stack"),
				CSRFField(m.CSRFToken),
				textField("First name", "first_name", "text", u.FirstName, s.ProfileErrors),
				textField("Last name", "last_name", "text", u.LastName, s.ProfileErrors),
				textField("Email", "email", "email", u.Email, s.ProfileErrors),
				selectField("Gender", "gender", u.Gender, genderOptions, s.ProfileErrors),
				textField("Birthday", "birthday", "date", u.Birthday, s.ProfileErrors),
				h.Button(h.Type("submit"), g.Text("Save profile")),
			),
		),

		h.Section(h.ID("persona"),
			h.H2(g.Text("Reading style")),
			s.Persona.node(),
			h.FormEl(h.Method("post"), h.Action("/settings/persona"), h.Class("stack"),
				CSRFField(m.CSRFToken),
				personaFields(persona, "", s.PersonaErrors),
				h.Button(h.Type("submit"), g.Text("Save reading style")),
			),
		),

		h.Section(h.ID("sections"),
			h.H2(g.Text("Interests")),
			s.SectionsResult.node(),
			h.FormEl(h.Method("post"), h.Action("/settings/sections"), h.Class("stack"),
				CSRFField(m.CSRFToken),
				sectionCheckboxes(s.Sections, u.PreferredSectionIDs(), s.SectionsErrors),
				h.Button(h.Type("submit"), g.Text("Save interests")),
			),
		),
	)
}
