// Package visitor はブラウザ（訪問者）ごとのコントローラーとバックエンドクライアントを保持する。
package visitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hitoshi/newsaic/internal/controller"
	"github.com/hitoshi/newsaic/internal/metrics"
)

// Visitor は訪問者1人分の状態。バックエンドクライアントは訪問者専用のCookie Jarを持つ。
type Visitor struct {
	ID         string
	Controller *controller.Controller
	Backend    Backend
	CreatedAt  time.Time
}

// Factory は新しい訪問者のコントローラーとクライアントを生成する。
type Factory func(id string) (*Visitor, error)

// Registry は訪問者IDから訪問者を引く、容量と有効期限付きのレジストリ。
// 最終アクセスから期限までの間だけ保持する。
type Registry struct {
	cache   *expirable.LRU[string, *Visitor]
	factory Factory
	metrics metrics.MetricsCollector

	mu sync.Mutex // 取得と生成を一体で行う
}

// NewRegistry はRegistryを生成する。
func NewRegistry(size int, ttl time.Duration, factory Factory, mc metrics.MetricsCollector) *Registry {
	if mc == nil {
		mc = metrics.Nop{}
	}
	r := &Registry{factory: factory, metrics: mc}
	r.cache = expirable.NewLRU[string, *Visitor](size, func(string, *Visitor) {
		// LRUのロック内で呼ばれるためcacheは参照しない
		mc.RecordVisitorEvicted()
	}, ttl)
	return r
}

// Get は既存の訪問者を返す。アクセスにより有効期限を延長する。
func (r *Registry) Get(id string) (*Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache.Get(id)
	if ok {
		r.cache.Add(id, v)
	}
	return v, ok
}

// GetOrCreate は訪問者を返す。idが空・不正・未登録の場合は新しいIDで生成する。
// 生成した場合はcreated=trueを返す。
func (r *Registry) GetOrCreate(id string) (v *Visitor, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, perr := uuid.Parse(id); perr == nil {
		if existing, ok := r.cache.Get(id); ok {
			r.cache.Add(id, existing)
			return existing, false, nil
		}
	}

	v, err = r.createLocked(uuid.NewString())
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Reset は訪問者を破棄し、新しいIDで作り直す。
// ログアウト時にCookie Jarを含む全ての状態を捨てるために使う。
func (r *Registry) Reset(id string) (*Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(id)
	return r.createLocked(uuid.NewString())
}

// Len は保持中の訪問者数を返す。
func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) createLocked(id string) (*Visitor, error) {
	v, err := r.factory(id)
	if err != nil {
		return nil, fmt.Errorf("訪問者の生成に失敗しました: %w", err)
	}
	if v.ID == "" {
		v.ID = id
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	r.cache.Add(v.ID, v)
	r.metrics.SetActiveVisitors(r.cache.Len())
	return v, nil
}

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var visitorContextKey = contextKey("visitor")

// NewContext は訪問者をコンテキストに格納する。
func NewContext(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, visitorContextKey, v)
}

// FromContext はコンテキストから訪問者を取得する。
func FromContext(ctx context.Context) (*Visitor, bool) {
	v, ok := ctx.Value(visitorContextKey).(*Visitor)
	return v, ok && v != nil
}
