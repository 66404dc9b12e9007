package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/newsaic/internal/model"
)

// AuthStatus はセッション確認の結果。
type AuthStatus struct {
	Authenticated bool
	User          *model.User
}

// Session は認証状態として返す。
func (s AuthStatus) Session() model.Session {
	if !s.Authenticated {
		return model.AnonymousSession()
	}
	return model.Session{Authenticated: true, User: s.User}
}

// LogoutResult はログアウトの結果。Successは常にtrue。
type LogoutResult struct {
	Success bool
	Detail  string
}

type loginResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
	Detail  string      `json:"detail"`
}

// Login は資格情報でログインする。
// 失敗時はバックエンドのdetailまたは汎用メッセージを持つauthエラーを返す。
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out loginResponse
	_, err := c.do(ctx, "login", http.MethodPost, c.paths.Login, nil, model.Credentials{
		Username: username,
		Password: password,
	}, &out)
	if err != nil {
		apiErr, ok := model.AsAPIError(err)
		if !ok || apiErr.Category == model.CategoryTransport {
			return err
		}
		detail := apiErr.Message
		if detail == http.StatusText(apiErr.Status) {
			detail = ""
		}
		if detail == "" {
			detail = "Login failed"
		}
		return model.NewInvalidCredentialsError(detail)
	}
	if !out.Success && out.User == nil && out.Detail != "" {
		return model.NewInvalidCredentialsError(out.Detail)
	}
	return nil
}

// Logout はバックエンドのセッションを終了する。
// バックエンドや通信の失敗は記録のみ行い、常に成功として返す。
func (c *Client) Logout(ctx context.Context) LogoutResult {
	if _, err := c.do(ctx, "logout", http.MethodPost, c.paths.Logout, nil, nil, nil); err != nil {
		c.logger.Warn("バックエンドのログアウトに失敗しました。クライアント側でログアウトします",
			slog.String("error", err.Error()),
		)
		return LogoutResult{Success: true, Detail: "Client-side logout fallback"}
	}
	return LogoutResult{Success: true}
}

// CheckAuth は現在のセッションが有効かを確認する。
// どのようなエラーも未認証として扱う。
func (c *Client) CheckAuth(ctx context.Context) AuthStatus {
	user, err := c.CurrentUser(ctx)
	if err != nil || user == nil {
		return AuthStatus{}
	}
	return AuthStatus{Authenticated: true, User: user}
}

// CurrentUser は現在のユーザーを取得する。エラーはそのまま返す。
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if _, err := c.do(ctx, "current_user", http.MethodGet, c.paths.Me, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Register は新規ユーザーを登録する。
// 検証エラーはフィールド単位のメッセージを持つvalidationエラーとして返す。
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	var user model.User
	if _, err := c.do(ctx, "register", http.MethodPost, c.paths.Register, nil, reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile はプロフィールを部分更新する。
func (c *Client) UpdateProfile(ctx context.Context, p model.ProfileUpdate) (*model.User, error) {
	var user model.User
	if _, err := c.do(ctx, "update_profile", http.MethodPatch, c.paths.Me, nil, p, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePersona は文体設定を更新する。
// 更新後のユーザーは呼び出し元がCurrentUserで再取得する。
func (c *Client) UpdatePersona(ctx context.Context, p model.Persona) error {
	_, err := c.do(ctx, "update_persona", http.MethodPatch, c.paths.Persona, nil, p, nil)
	return err
}

// UpdateSections は関心セクションを置き換える。
func (c *Client) UpdateSections(ctx context.Context, sectionIDs []string) error {
	prefs := make([]model.SectionPreference, 0, len(sectionIDs))
	for _, id := range sectionIDs {
		prefs = append(prefs, model.SectionPreference{SectionID: id})
	}
	body := map[string][]model.SectionPreference{"preferred_sections": prefs}
	_, err := c.do(ctx, "update_sections", http.MethodPatch, c.paths.Sections, nil, body, nil)
	return err
}
