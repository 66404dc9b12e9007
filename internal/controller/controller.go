// Package controller は訪問者ごとのアプリケーション状態を管理する。
//
// Controllerは認証セッション、記事コレクション、フィルタ条件、表示対象記事の
// 唯一の保持者であり、状態の変更はmuの下でのみ行う。ネットワークI/Oはロック外で
// 実行し、結果はepochとフィード種別で妥当性を確認してから反映する。
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/newsaic/internal/feedfilter"
	"github.com/hitoshi/newsaic/internal/gateway"
	"github.com/hitoshi/newsaic/internal/model"
	"github.com/hitoshi/newsaic/internal/validation"
)

const (
	// DefaultAuthCheckTimeout は起動時の認証確認の上限時間。
	DefaultAuthCheckTimeout = 5 * time.Second
	// DefaultLoginSettleDelay はログイン後にセッションを再確認するまでの待機時間。
	DefaultLoginSettleDelay = 500 * time.Millisecond
)

// SessionGateway はControllerが利用する認証APIのインターフェース。
type SessionGateway interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) gateway.LogoutResult
	CheckAuth(ctx context.Context) gateway.AuthStatus
	Register(ctx context.Context, reg model.Registration) (*model.User, error)
}

// ContentGateway はControllerが利用する記事APIのインターフェース。
type ContentGateway interface {
	ListArticles(ctx context.Context, params gateway.ListParams) ([]model.Article, error)
}

// LoadState は読み込み状態。
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadVerifying
)

// String はログ・表示用の名前を返す。
func (s LoadState) String() string {
	switch s {
	case LoadLoading:
		return "loading"
	case LoadVerifying:
		return "verifying"
	}
	return "idle"
}

// State はControllerの状態のスナップショット。
type State struct {
	Session     model.Session
	Articles    []model.Article
	Visible     []model.Article
	Filter      model.FilterSpec
	Load        LoadState
	Initialized bool
	Epoch       uint64
}

// Options はControllerの生成オプション。
type Options struct {
	AuthCheckTimeout time.Duration
	LoginSettleDelay time.Duration
	Now              func() time.Time
	Logger           *slog.Logger
	Validator        *validation.Validator
}

// Controller は訪問者1人分のアプリケーションコントローラー。
type Controller struct {
	session   SessionGateway
	content   ContentGateway
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	authCheckTimeout time.Duration
	loginSettleDelay time.Duration

	initOnce sync.Once

	mu           sync.Mutex
	state        State
	initializing bool
	fetching     int // 実行中の記事再取得の数
}

// New はControllerを生成する。
func New(session SessionGateway, content ContentGateway, opts Options) *Controller {
	c := &Controller{
		session:          session,
		content:          content,
		validator:        opts.Validator,
		logger:           opts.Logger,
		now:              opts.Now,
		authCheckTimeout: opts.AuthCheckTimeout,
		loginSettleDelay: opts.LoginSettleDelay,
		state: State{
			Session:  model.AnonymousSession(),
			Articles: []model.Article{},
			Visible:  []model.Article{},
			Filter:   model.DefaultFilterSpec(),
		},
	}
	if c.validator == nil {
		c.validator = validation.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.authCheckTimeout <= 0 {
		c.authCheckTimeout = DefaultAuthCheckTimeout
	}
	if c.loginSettleDelay < 0 {
		c.loginSettleDelay = 0
	}
	return c
}

// Snapshot は現在の状態のコピーを返す。
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Articles = append([]model.Article(nil), c.state.Articles...)
	s.Visible = append([]model.Article(nil), c.state.Visible...)
	if c.state.Session.User != nil {
		u := *c.state.Session.User
		s.Session.User = &u
	}
	return s
}

// EnsureInitialized は初回のみInitializeを実行する。並行呼び出しは完了を待つ。
// 初期化はリクエストのキャンセルに影響されない。
func (c *Controller) EnsureInitialized(ctx context.Context) State {
	c.initOnce.Do(func() {
		c.Initialize(context.WithoutCancel(ctx))
	})
	return c.Snapshot()
}

// Initialize は認証確認と記事取得を並行に実行する。
// 両者は独立に失敗し、それぞれ先に完了した方が自分の状態だけを反映する。
// 読み込み状態は両方の完了後にidleへ戻る。
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	c.state.Load = LoadLoading
	c.initializing = true
	epoch := c.state.Epoch
	feed := c.state.Filter.Feed
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status := c.checkAuthWithTimeout(gctx)
		c.applySession(epoch, status.Session())
		return nil
	})
	g.Go(func() error {
		articles := c.fetchArticles(gctx, feed)
		c.applyArticles(epoch, feed, articles)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	c.initializing = false
	if c.state.Epoch == epoch {
		if c.fetching == 0 {
			c.state.Load = LoadIdle
		}
		c.state.Initialized = true
	}
	c.mu.Unlock()
}

// Initializing は別の呼び出しが初回の読み込みを実行中かを返す。待たずに描画したい場合に使う。
func (c *Controller) Initializing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializing
}

// fetchTracked は読み込み状態をloadingにしてから記事を取得する。
// 認証確認中の表示は上書きしない。最後の取得が終わった時点でidleへ戻す。
func (c *Controller) fetchTracked(ctx context.Context, feed model.FeedSelector) []model.Article {
	c.mu.Lock()
	c.fetching++
	if c.state.Load == LoadIdle {
		c.state.Load = LoadLoading
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.fetching--
		if c.fetching == 0 && !c.initializing && c.state.Load == LoadLoading {
			c.state.Load = LoadIdle
		}
		c.mu.Unlock()
	}()
	return c.fetchArticles(ctx, feed)
}

// checkAuthWithTimeout は認証確認を上限時間内で実行し、超過時は未認証とする。
func (c *Controller) checkAuthWithTimeout(ctx context.Context) gateway.AuthStatus {
	actx, cancel := context.WithTimeout(ctx, c.authCheckTimeout)
	defer cancel()

	result := make(chan gateway.AuthStatus, 1)
	go func() {
		result <- c.session.CheckAuth(actx)
	}()

	select {
	case status := <-result:
		return status
	case <-actx.Done():
		c.logger.Warn("認証確認がタイムアウトしました。未認証として扱います",
			slog.Duration("timeout", c.authCheckTimeout),
		)
		return gateway.AuthStatus{}
	}
}

// fetchArticles はフィード種別に応じた記事一覧を取得する。失敗時は空の列を返す。
func (c *Controller) fetchArticles(ctx context.Context, feed model.FeedSelector) []model.Article {
	articles, err := c.content.ListArticles(ctx, gateway.ListParams{Preferred: feed == model.FeedPersonalized})
	if err != nil {
		c.logger.Warn("記事一覧の取得に失敗しました。空の一覧を表示します",
			slog.String("feed", string(feed)),
			slog.String("error", err.Error()),
		)
		return []model.Article{}
	}
	if articles == nil {
		articles = []model.Article{}
	}
	return articles
}

func (c *Controller) applySession(epoch uint64, s model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Epoch != epoch {
		return
	}
	c.state.Session = s
}

// applyArticles は取得結果が現在のepochとフィード種別に一致する場合のみ反映する。
func (c *Controller) applyArticles(epoch uint64, feed model.FeedSelector, articles []model.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Epoch != epoch {
		return
	}
	if (feed == model.FeedPersonalized) != (c.state.Filter.Feed == model.FeedPersonalized) {
		c.logger.Debug("フィードが切り替わったため取得結果を破棄しました",
			slog.String("fetched_feed", string(feed)),
			slog.String("current_feed", string(c.state.Filter.Feed)),
		)
		return
	}
	c.state.Articles = articles
	c.recomputeLocked()
}

func (c *Controller) recomputeLocked() {
	c.state.Visible = feedfilter.Apply(c.state.Articles, c.state.Filter, c.now())
}

// SetFilter はフィルタ条件の差分を反映し、表示対象を再計算する。
// フィード変更時はカテゴリを同じ更新の中で "All" に戻す。
// personalizedフィードへの切り替え（またはその解除）ではサーバーから記事を再取得する。
func (c *Controller) SetFilter(ctx context.Context, delta model.FilterDelta) State {
	c.mu.Lock()
	prev := c.state.Filter
	next := prev.Merge(delta)
	c.state.Filter = next
	c.recomputeLocked()
	epoch := c.state.Epoch
	refetch := (prev.Feed == model.FeedPersonalized) != (next.Feed == model.FeedPersonalized)
	c.mu.Unlock()

	if refetch {
		articles := c.fetchTracked(ctx, next.Feed)
		c.applyArticles(epoch, next.Feed, articles)
	}
	return c.Snapshot()
}

// RefreshArticles は現在のフィード種別で記事を再取得する。
func (c *Controller) RefreshArticles(ctx context.Context) State {
	c.mu.Lock()
	epoch := c.state.Epoch
	feed := c.state.Filter.Feed
	c.mu.Unlock()

	articles := c.fetchTracked(ctx, feed)
	c.applyArticles(epoch, feed, articles)
	return c.Snapshot()
}

// Authenticate はログイン後、待機してからセッションを再確認する。
// ログイン応答の本文は信用せず、再確認の結果をセッションとして採用する。
func (c *Controller) Authenticate(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if err := c.validator.Struct(creds); err != nil {
		return c.Snapshot().Session, err
	}

	epoch := c.beginVerifying()
	defer c.endVerifying(epoch)

	if err := c.session.Login(ctx, creds.Username, creds.Password); err != nil {
		c.logger.Info("ログインに失敗しました",
			slog.String("username", creds.Username),
			slog.String("error", err.Error()),
		)
		return c.Snapshot().Session, err
	}
	return c.settleAndVerify(ctx, epoch)
}

// Register は入力を検証して登録し、ログイン時と同じくセッションを再確認する。
// 登録後にセッションが確立していない場合は同じ資格情報でログインする。
func (c *Controller) Register(ctx context.Context, reg model.Registration) (model.Session, error) {
	if err := c.validator.Struct(reg); err != nil {
		return c.Snapshot().Session, err
	}

	epoch := c.beginVerifying()
	defer c.endVerifying(epoch)

	if _, err := c.session.Register(ctx, reg); err != nil {
		c.logger.Info("ユーザー登録に失敗しました",
			slog.String("username", reg.Username),
			slog.String("error", err.Error()),
		)
		return c.Snapshot().Session, err
	}

	s, err := c.settleAndVerify(ctx, epoch)
	if err == nil {
		return s, nil
	}
	if !model.IsCategory(err, model.CategoryAuth) {
		return s, err
	}
	if err := c.session.Login(ctx, reg.Username, reg.Password); err != nil {
		return c.Snapshot().Session, err
	}
	return c.settleAndVerify(ctx, epoch)
}

func (c *Controller) beginVerifying() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Load = LoadVerifying
	return c.state.Epoch
}

func (c *Controller) endVerifying(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Epoch == epoch {
		c.state.Load = LoadIdle
	}
}

// settleAndVerify は待機後にセッションを再確認し、記事を再取得する。
func (c *Controller) settleAndVerify(ctx context.Context, epoch uint64) (model.Session, error) {
	if c.loginSettleDelay > 0 {
		timer := time.NewTimer(c.loginSettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return c.Snapshot().Session, ctx.Err()
		}
	}

	status := c.session.CheckAuth(ctx)
	s := status.Session()
	c.applySession(epoch, s)

	c.mu.Lock()
	feed := c.state.Filter.Feed
	c.mu.Unlock()
	c.applyArticles(epoch, feed, c.fetchArticles(ctx, feed))

	if !s.Authenticated {
		c.logger.Warn("ログイン後のセッション確認で認証を確認できませんでした")
		return s, model.NewUnauthenticatedError()
	}
	return s, nil
}

// RefreshUser はセッションを再確認する。設定の更新後に使う。
func (c *Controller) RefreshUser(ctx context.Context) model.Session {
	c.mu.Lock()
	epoch := c.state.Epoch
	c.mu.Unlock()

	s := c.session.CheckAuth(ctx).Session()
	c.applySession(epoch, s)
	return c.Snapshot().Session
}

// Logout はバックエンドのログアウト結果にかかわらず、セッションと記事を破棄する。
// epochを進め、実行中の取得結果が反映されないようにする。
func (c *Controller) Logout(ctx context.Context) State {
	res := c.session.Logout(ctx)
	if res.Detail != "" {
		c.logger.Info("ログアウトを完了しました", slog.String("detail", res.Detail))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Epoch++
	c.state.Session = model.AnonymousSession()
	c.state.Articles = []model.Article{}
	c.state.Visible = []model.Article{}
	c.state.Filter = model.DefaultFilterSpec()
	c.state.Load = LoadIdle
	return c.snapshotLocked()
}
