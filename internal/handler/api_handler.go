package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsaic/internal/model"
)

// feedSnapshotResponse はGET /api/feed のレスポンス。
type feedSnapshotResponse struct {
	Session     model.Session    `json:"session"`
	Filter      model.FilterSpec `json:"filter"`
	Load        string           `json:"load"`
	Initialized bool             `json:"initialized"`
	Articles    []model.Article  `json:"articles"`
	Total       int              `json:"total"`
}

// VisitorCounter は保持中の訪問者数を返す。
type VisitorCounter interface {
	Len() int
}

// APIHandler はJSONエンドポイントのハンドラー。
type APIHandler struct {
	visitors VisitorCounter
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(visitors VisitorCounter) *APIHandler {
	return &APIHandler{visitors: visitors}
}

// Feed は訪問者の現在の表示状態を返す。
// GET /api/feed
func (h *APIHandler) Feed(w http.ResponseWriter, r *http.Request) {
	v, ok := currentVisitor(w, r)
	if !ok {
		return
	}
	state := v.Controller.EnsureInitialized(r.Context())

	articles := state.Visible
	if articles == nil {
		articles = []model.Article{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(feedSnapshotResponse{
		Session:     state.Session,
		Filter:      state.Filter,
		Load:        state.Load.String(),
		Initialized: state.Initialized,
		Articles:    articles,
		Total:       len(state.Articles),
	})
}

// Health はプロセスの稼働状態を返す。バックエンドには問い合わせない。
// GET /health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if h.visitors != nil {
		body["visitors"] = h.visitors.Len()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
