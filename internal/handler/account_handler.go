package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/newsaic/internal/middleware"
	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/validation"
	"github.com/hitoshi/newsaic/internal/view"
	"github.com/hitoshi/newsaic/internal/visitor"
)

// 設定フォームの完了メッセージ
const (
	msgProfileUpdated  = "Profile updated successfully!"
	msgPersonaUpdated  = "Reading style updated successfully!"
	msgSectionsUpdated = "Interests updated successfully!"
	msgLoginRequired   = "Please enter both username and password."
	msgLoginFailed     = "Login failed. Please check your credentials and try again."
)

// VisitorResetter はログアウト時に訪問者を作り直す。
type VisitorResetter interface {
	Reset(id string) (*visitor.Visitor, error)
}

// AccountHandler はログイン・登録・設定のハンドラー。
type AccountHandler struct {
	pageSupport
	visitors  VisitorResetter
	cookie    middleware.VisitorCookieConfig
	validator *validation.Validator
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(visitors VisitorResetter, cookie middleware.VisitorCookieConfig, now func() time.Time, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		pageSupport: newPageSupport(now, logger),
		visitors:    visitors,
		cookie:      cookie,
		validator:   validation.New(),
	}
}

// LoginForm はGET /login を処理する。認証済みの場合はnextへリダイレクトする。
func (h *AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	next := safeNext(r.URL.Query().Get("next"), "/")
	if state.Session.Authenticated {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, view.LoginPage(h.meta(r, state.Session), next, "", ""))
}

// Login はPOST /login を処理する。
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	h.session(r, v)

	creds := model.Credentials{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"), "/")

	s, err := v.Controller.Authenticate(r.Context(), creds)
	if err != nil {
		h.render(w, r, http.StatusBadRequest,
			view.LoginPage(h.meta(r, s), next, creds.Username, loginErrorMessage(err)))
		return
	}
	h.logger.Info("ログインしました", slog.String("visitor_id", v.ID))
	seeOther(w, r, next)
}

// loginErrorMessage はログイン失敗時の表示メッセージを返す。
func loginErrorMessage(err error) string {
	apiErr, ok := model.AsAPIError(err)
	switch {
	case !ok:
		return msgLoginFailed
	case apiErr.Category == model.CategoryValidation:
		return msgLoginRequired
	case apiErr.Code == model.ErrCodeInvalidCredentials:
		return apiErr.Message
	case apiErr.Category == model.CategoryTransport:
		return apiErr.Message
	}
	return msgLoginFailed
}

// Logout はPOST /logout を処理する。
// バックエンドの結果にかかわらず訪問者を作り直し、新しいCookieを発行する。
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	v.Controller.Logout(r.Context())

	fresh, err := h.visitors.Reset(v.ID)
	if err != nil {
		h.logger.Error("ログアウト後の訪問者の再生成に失敗しました",
			slog.String("visitor_id", v.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	middleware.SetVisitorCookie(w, fresh.ID, h.cookie)
	seeOther(w, r, "/")
}

// RegisterForm はGET /register を処理する。
func (h *AccountHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	if state.Session.Authenticated {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, view.RegisterPage(h.meta(r, state.Session), view.RegisterForm{
		Sections: h.sections(r.Context(), v),
	}))
}

// Register はPOST /register を処理する。成功時はホームへリダイレクトする。
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	h.session(r, v)

	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, view.ErrorPage(h.meta(r, v.Controller.Snapshot().Session), "Invalid form submission.", "/register"))
		return
	}

	sections := h.sections(r.Context(), v)
	reg := registrationFromForm(r, sections)

	s, err := v.Controller.Register(r.Context(), reg)
	if err != nil {
		errs, msg := fieldErrors(err)
		if msg == "" && len(errs) == 0 {
			msg = model.UserMessage(err)
		}
		h.render(w, r, http.StatusBadRequest, view.RegisterPage(h.meta(r, s), view.RegisterForm{
			Input:    reg,
			Sections: sections,
			Errors:   errs,
			Message:  msg,
		}))
		return
	}
	h.logger.Info("ユーザー登録が完了しました", slog.String("visitor_id", v.ID))
	seeOther(w, r, "/")
}

// registrationFromForm はフォーム値から登録入力を組み立てる。
// セクション名は取得済みのセクション一覧から補完する。
func registrationFromForm(r *http.Request, sections []model.Section) model.Registration {
	names := make(map[string]string, len(sections))
	for _, s := range sections {
		names[s.Key()] = s.WebTitle
	}

	reg := model.Registration{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
		FirstName:       strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:        strings.TrimSpace(r.PostFormValue("last_name")),
		Gender:          r.PostFormValue("gender"),
		Birthday:        r.PostFormValue("birthday"),
		Persona:         personaFromForm(r, "persona."),
	}
	for _, id := range r.PostForm["preferred_sections"] {
		if id = strings.TrimSpace(id); id != "" {
			reg.PreferredSections = append(reg.PreferredSections, model.SectionPreference{
				SectionID:   id,
				SectionName: names[id],
			})
		}
	}
	return reg
}

func personaFromForm(r *http.Request, prefix string) model.Persona {
	return model.Persona{
		Tone:              r.PostFormValue(prefix + "tone"),
		Style:             r.PostFormValue(prefix + "style"),
		Length:            r.PostFormValue(prefix + "length"),
		ExtraInstructions: strings.TrimSpace(r.PostFormValue(prefix + "extra_instructions")),
	}
}

// sections はセクション一覧を返す。取得失敗時は空で、フォーム側で案内を表示する。
func (h *AccountHandler) sections(ctx context.Context, v *visitor.Visitor) []model.Section {
	sections, err := v.Backend.ListSections(ctx)
	if err != nil {
		h.logger.Warn("セクション一覧の取得に失敗しました", slog.String("error", err.Error()))
		return nil
	}
	return sections
}

// Settings はGET /settings を処理する。
func (h *AccountHandler) Settings(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := h.session(r, v)
	if !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return
	}
	h.renderSettings(w, r, v, state.Session, http.StatusOK, nil)
}

// renderSettings は現在のユーザーを取得して設定ページを描画する。
// overlayでフォームごとの結果や入力値を上書きする。
func (h *AccountHandler) renderSettings(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, s model.Session, status int, overlay func(*view.Settings)) {
	data := view.Settings{Sections: h.sections(r.Context(), v)}

	user, err := v.Backend.CurrentUser(r.Context())
	if err != nil {
		h.logger.Warn("プロフィールの取得に失敗しました", slog.String("error", err.Error()))
		data.Error = model.UserMessage(err)
		status = statusFor(err)
	} else {
		data.User = user
		if overlay != nil {
			overlay(&data)
		}
	}
	h.render(w, r, status, view.SettingsPage(h.meta(r, s), data))
}

// requireAuth は認証済みの訪問者を返す。未認証の場合はログイン案内を描画する。
func (h *AccountHandler) requireAuth(w http.ResponseWriter, r *http.Request) (*visitor.Visitor, model.Session, bool) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return nil, model.Session{}, false
	}
	state := h.session(r, v)
	if !state.Session.Authenticated {
		h.loginPrompt(w, r, state.Session)
		return nil, model.Session{}, false
	}
	return v, state.Session, true
}

// UpdateProfile はPOST /settings/profile を処理する。
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	v, s, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	in := model.ProfileUpdate{
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Gender:    r.PostFormValue("gender"),
		Birthday:  r.PostFormValue("birthday"),
	}

	err := h.validator.Struct(in)
	if err == nil {
		_, err = v.Backend.UpdateProfile(r.Context(), in)
	}
	if err != nil {
		errs, msg := fieldErrors(err)
		h.renderSettings(w, r, v, s, http.StatusBadRequest, func(d *view.Settings) {
			u := *d.User
			u.FirstName, u.LastName, u.Email, u.Gender, u.Birthday = in.FirstName, in.LastName, in.Email, in.Gender, in.Birthday
			d.User = &u
			d.ProfileErrors = errs
			d.Profile = view.FormMessage{Error: formError(msg, errs)}
		})
		return
	}

	s = v.Controller.RefreshUser(r.Context())
	h.renderSettings(w, r, v, s, http.StatusOK, func(d *view.Settings) {
		d.Profile = view.FormMessage{Success: msgProfileUpdated}
	})
}

// UpdatePersona はPOST /settings/persona を処理する。
func (h *AccountHandler) UpdatePersona(w http.ResponseWriter, r *http.Request) {
	v, s, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	in := personaFromForm(r, "")
	err := h.validator.Struct(in)
	if err == nil {
		err = v.Backend.UpdatePersona(r.Context(), in)
	}
	if err != nil {
		errs, msg := fieldErrors(err)
		h.renderSettings(w, r, v, s, http.StatusBadRequest, func(d *view.Settings) {
			u := *d.User
			u.Persona = &in
			d.User = &u
			d.PersonaErrors = errs
			d.Persona = view.FormMessage{Error: formError(msg, errs)}
		})
		return
	}

	s = v.Controller.RefreshUser(r.Context())
	h.renderSettings(w, r, v, s, http.StatusOK, func(d *view.Settings) {
		d.Persona = view.FormMessage{Success: msgPersonaUpdated}
	})
}

// sectionsForm は関心セクション更新フォームの入力。
type sectionsForm struct {
	PreferredSections []string `json:"preferred_sections" validate:"min=1"`
}

// UpdateSections はPOST /settings/sections を処理する。
// 更新後はセッションを再確認し、パーソナライズフィードの条件を最新にする。
func (h *AccountHandler) UpdateSections(w http.ResponseWriter, r *http.Request) {
	v, s, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, view.ErrorPage(h.meta(r, s), "Invalid form submission.", "/settings"))
		return
	}

	var in sectionsForm
	for _, id := range r.PostForm["preferred_sections"] {
		if id = strings.TrimSpace(id); id != "" {
			in.PreferredSections = append(in.PreferredSections, id)
		}
	}

	err := h.validator.Struct(in)
	if err == nil {
		err = v.Backend.UpdateSections(r.Context(), in.PreferredSections)
	}
	if err != nil {
		errs, msg := fieldErrors(err)
		h.renderSettings(w, r, v, s, http.StatusBadRequest, func(d *view.Settings) {
			u := *d.User
			u.PreferredSections = nil
			for _, id := range in.PreferredSections {
				u.PreferredSections = append(u.PreferredSections, model.SectionPreference{SectionID: id})
			}
			d.User = &u
			d.SectionsErrors = errs
			d.SectionsResult = view.FormMessage{Error: formError(msg, errs)}
		})
		return
	}

	s = v.Controller.RefreshUser(r.Context())
	if v.Controller.Snapshot().Filter.Feed == model.FeedPersonalized {
		v.Controller.RefreshArticles(r.Context())
	}
	h.renderSettings(w, r, v, s, http.StatusOK, func(d *view.Settings) {
		d.SectionsResult = view.FormMessage{Success: msgSectionsUpdated}
	})
}

// formError はフォーム上部に表示するエラーメッセージを返す。
func formError(msg string, errs view.FieldErrors) string {
	if msg != "" {
		return msg
	}
	if len(errs) > 0 {
		return "Please correct the errors below."
	}
	return "Could not save your changes. Please try again."
}
