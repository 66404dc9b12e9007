package model

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// エラーカテゴリ
const (
	CategoryTransport  = "transport"
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategorySystem     = "system"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: transport, auth, validation, not_found, system
	Action   string            // ユーザー向け対処方法
	Status   int               // バックエンドのHTTPステータス（0は通信失敗）
	Fields   map[string]string // フィールド単位の検証エラー
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// FieldMessages はフィールドエラーをキー順に "field: message" 形式で返す。
func (e *APIError) FieldMessages() []string {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+e.Fields[k])
	}
	return out
}

// 定義済みエラーコード
const (
	ErrCodeTransport          = "TRANSPORT_FAILED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeArticleNotFound    = "ARTICLE_NOT_FOUND"
	ErrCodeStoryNotFound      = "STORY_NOT_FOUND"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBackend            = "BACKEND_ERROR"
	ErrCodeInvalidFilter      = "INVALID_FILTER"
	ErrCodeSSRFBlocked        = "SSRF_BLOCKED"
	ErrCodeMediaFetchFailed   = "MEDIA_FETCH_FAILED"
)

// NewTransportError は通信失敗エラーを生成する。
func NewTransportError(operation string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeTransport,
		Message:  fmt.Sprintf("%s: バックエンドに接続できませんでした: %v", operation, err),
		Category: CategoryTransport,
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
func NewInvalidCredentialsError(detail string) *APIError {
	if detail == "" {
		detail = "Invalid credentials"
	}
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  detail,
		Category: CategoryAuth,
		Action:   "ユーザー名とパスワードを確認してください。",
		Status:   http.StatusBadRequest,
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "ログインが必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてから再度お試しください。",
		Status:   http.StatusUnauthorized,
	}
}

// NewValidationError はフィールド単位の検証エラーを生成する。
func NewValidationError(message string, fields map[string]string) *APIError {
	if message == "" {
		message = "入力内容に誤りがあります。"
	}
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
		Status:   http.StatusBadRequest,
		Fields:   fields,
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", id),
		Category: CategoryNotFound,
		Action:   "記事IDを確認してください。",
		Status:   http.StatusNotFound,
	}
}

// NewStoryNotFoundError はハイライトストーリー未検出エラーを生成する。
func NewStoryNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeStoryNotFound,
		Message:  fmt.Sprintf("指定されたストーリーが見つかりません: %s", ref),
		Category: CategoryNotFound,
		Action:   "ハイライト一覧から選択し直してください。",
		Status:   http.StatusNotFound,
	}
}

// NewBackendError はバックエンドの非2xx応答をエラーに変換する。
// detailが空の場合はfallbackをメッセージに使う。
func NewBackendError(status int, detail, fallback string) *APIError {
	msg := detail
	if msg == "" {
		msg = fallback
	}
	e := &APIError{
		Code:     ErrCodeBackend,
		Message:  msg,
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
		Status:   status,
	}
	switch {
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
		e.Category = CategoryNotFound
		e.Action = "URLを確認してください。"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeUnauthenticated
		e.Category = CategoryAuth
		e.Action = "ログインし直してください。"
	case status == http.StatusBadRequest:
		e.Code = ErrCodeValidation
		e.Category = CategoryValidation
		e.Action = "入力内容を確認してください。"
	}
	return e
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: CategoryValidation,
		Action:   "フィードには general、personalized、today のいずれかを指定してください。",
		Status:   http.StatusBadRequest,
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: CategoryValidation,
		Action:   "公開されているWebサイトの画像URLのみ利用できます。",
		Status:   http.StatusBadRequest,
	}
}

// NewMediaFetchFailedError は画像取得失敗エラーを生成する。
func NewMediaFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMediaFetchFailed,
		Message:  fmt.Sprintf("画像の取得に失敗しました: %s", reason),
		Category: CategoryTransport,
		Action:   "しばらく待ってから再度お試しください。",
		Status:   http.StatusBadGateway,
	}
}

// AsAPIError はerrをAPIErrorとして取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound はerrが未検出エラーかを判定する。
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Category == CategoryNotFound
}

// IsCategory はerrが指定カテゴリのAPIErrorかを判定する。
func IsCategory(err error, category string) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Category == category
}

// UserMessage はUIに表示するメッセージを返す。APIError以外は汎用メッセージにする。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsAPIError(err); ok {
		if len(apiErr.Fields) > 0 && apiErr.Message == "" {
			return strings.Join(apiErr.FieldMessages(), "; ")
		}
		return apiErr.Message
	}
	return "予期しないエラーが発生しました。"
}
