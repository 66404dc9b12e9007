package view

import (
	g "github.com/maragudk/gomponents"
	h "github.com/maragudk/gomponents/html"

	"github.com/hitoshi/newsaic/internal/model"
)

type option struct {
	Value string
	Label string
}

var (
	genderOptions = []option{{"", "Select gender"}, {"m", "Male"}, {"f", "Female"}}
	toneOptions   = []option{{"", "Select tone"}, {"friendly", "Friendly"}, {"professional", "Professional"}, {"casual", "Casual"}, {"formal", "Formal"}}
	styleOptions  = []option{{"", "Select style"}, {"concise", "Concise"}, {"detailed", "Detailed"}, {"balanced", "Balanced"}}
	lengthOptions = []option{{"", "Select length"}, {"short", "Short"}, {"medium", "Medium"}, {"long", "Long"}}
)

// FieldErrors はフィールド名からエラーメッセージへの対応。
type FieldErrors map[string]string

func (fe FieldErrors) node(name string) g.Node {
	msg, ok := fe[name]
	if !ok || msg == "" {
		return nil
	}
	return h.P(h.Class("field-error"), h.ID(name+"-error"), g.Text(msg))
}

func textField(label, name, typ, value string, errs FieldErrors, extra ...g.Node) g.Node {
	return h.Div(h.Class("field"),
		h.Label(h.For(name), g.Text(label)),
		h.Input(h.ID(name), h.Type(typ), h.Name(name), h.Value(value), g.Group(extra)),
		errs.node(name),
	)
}

func selectField(label, name, value string, opts []option, errs FieldErrors) g.Node {
	options := make([]g.Node, 0, len(opts))
	for _, o := range opts {
		options = append(options, h.Option(h.Value(o.Value), g.If(o.Value == value, h.Selected()), g.Text(o.Label)))
	}
	return h.Div(h.Class("field"),
		h.Label(h.For(name), g.Text(label)),
		h.Select(h.ID(name), h.Name(name), g.Group(options)),
		errs.node(name),
	)
}

func personaFields(p model.Persona, prefix string, errs FieldErrors) g.Node {
	return g.Group([]g.Node{
		selectField("Tone", prefix+"tone", p.Tone, toneOptions, errs),
		selectField("Style", prefix+"style", p.Style, styleOptions, errs),
		selectField("Length", prefix+"length", p.Length, lengthOptions, errs),
		h.Div(h.Class("field"),
			h.Label(h.For(prefix+"extra_instructions"), g.Text("Extra instructions")),
			h.Textarea(h.ID(prefix+"extra_instructions"), h.Name(prefix+"extra_instructions"), h.Rows("3"),
				h.Placeholder("Any additional instructions for how you'd like your news to be written..."),
				g.Text(p.ExtraInstructions)),
			errs.node(prefix+"extra_instructions"),
		),
	})
}

// sectionCheckboxes は関心セクションのチェックボックスを描画する。
func sectionCheckboxes(sections []model.Section, selected []string, errs FieldErrors) g.Node {
	if len(sections) == 0 {
		return h.Div(
			h.P(h.Class("state"), g.Text("No sections available right now.")),
			errs.node("preferred_sections"),
		)
	}
	chosen := make(map[string]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}
	boxes := make([]g.Node, 0, len(sections))
	for _, s := range sections {
		key := s.Key()
		label := s.WebTitle
		if label == "" {
			label = key
		}
		boxes = append(boxes, h.Label(h.Class("checkbox"),
			h.Input(h.Type("checkbox"), h.Name("preferred_sections"), h.Value(key), g.If(chosen[key], h.Checked())),
			g.Text(" "+label),
		))
	}
	return h.FieldSet(
		h.Legend(g.Text("Preferred sections")),
		g.Group(boxes),
		errs.node("preferred_sections"),
	)
}
