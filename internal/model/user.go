package model

// User はバックエンドの認証済みユーザーを表す。
type User struct {
	ID                ID                  `json:"id,omitempty"`
	Username          string              `json:"username"`
	FirstName         string              `json:"first_name,omitempty"`
	LastName          string              `json:"last_name,omitempty"`
	Email             string              `json:"email,omitempty"`
	UserType          string              `json:"user_type,omitempty"`
	Gender            string              `json:"gender,omitempty"`
	Birthday          string              `json:"birthday,omitempty"`
	Persona           *Persona            `json:"persona,omitempty"`
	PreferredSections []SectionPreference `json:"preferred_sections,omitempty"`
}

// DisplayName は表示名を返す。氏名が無い場合はユーザー名を使う。
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Username
}

// PreferredSectionIDs は関心セクションのIDを登録順に返す。
func (u *User) PreferredSectionIDs() []string {
	if u == nil {
		return nil
	}
	ids := make([]string, 0, len(u.PreferredSections))
	for _, p := range u.PreferredSections {
		if p.SectionID != "" {
			ids = append(ids, p.SectionID)
		}
	}
	return ids
}

// Persona は要約生成に使う文体設定。
type Persona struct {
	Tone              string `json:"tone" validate:"omitempty,oneof=friendly professional casual formal"`
	Style             string `json:"style" validate:"omitempty,oneof=concise detailed balanced"`
	Length            string `json:"length" validate:"omitempty,oneof=short medium long"`
	ExtraInstructions string `json:"extra_instructions,omitempty" validate:"max=1000"`
}

// SectionPreference はユーザーの関心セクション。
type SectionPreference struct {
	SectionID   string  `json:"section_id" validate:"required"`
	SectionName string  `json:"section_name,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// Credentials はログイン入力を表す。
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration は新規登録フォームの入力を表す。
// PasswordConfirmはクライアント側の確認にのみ使い、送信しない。
type Registration struct {
	Username          string              `json:"username" validate:"required,max=150"`
	Email             string              `json:"email" validate:"required,email"`
	Password          string              `json:"password" validate:"required,min=8"`
	PasswordConfirm   string              `json:"-" form:"password_confirm" validate:"required,eqfield=Password"`
	FirstName         string              `json:"first_name,omitempty"`
	LastName          string              `json:"last_name,omitempty"`
	Gender            string              `json:"gender,omitempty" validate:"omitempty,oneof=m f"`
	Birthday          string              `json:"birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Persona           Persona             `json:"persona"`
	PreferredSections []SectionPreference `json:"preferred_sections" validate:"min=1,dive"`
}

// ProfileUpdate はプロフィールの部分更新を表す。
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Gender    string `json:"gender,omitempty" validate:"omitempty,oneof=m f"`
	Birthday  string `json:"birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Session は認証状態と現在のユーザーを表す。
// 未認証の場合Userはnil。
type Session struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user"`
}

// AnonymousSession は未認証セッションを返す。
func AnonymousSession() Session {
	return Session{}
}
