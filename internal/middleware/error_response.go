package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsaic/internal/model"
)

// ErrorResponseBody はJSON APIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Action   string            `json:"action"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Fields:   apiErr.Fields,
	})
}

// WriteAPIError はerrをカテゴリに応じたステータスで書き込む。
// APIError以外は内部エラーとして扱う。
func WriteAPIError(w http.ResponseWriter, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		WriteInternalServerError(w)
		return
	}
	WriteErrorResponse(w, StatusForError(apiErr), apiErr)
}

// StatusForError はエラーカテゴリからレスポンスのステータスコードを決める。
func StatusForError(apiErr *model.APIError) int {
	switch apiErr.Category {
	case model.CategoryValidation:
		return http.StatusBadRequest
	case model.CategoryAuth:
		return http.StatusUnauthorized
	case model.CategoryNotFound:
		return http.StatusNotFound
	case model.CategoryTransport:
		return http.StatusBadGateway
	}
	if apiErr.Status >= 500 {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: model.CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	})
}
