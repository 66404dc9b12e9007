package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/newsaic/internal/config"
	"github.com/hitoshi/newsaic/internal/controller"
	"github.com/hitoshi/newsaic/internal/gateway"
	"github.com/hitoshi/newsaic/internal/handler"
	"github.com/hitoshi/newsaic/internal/logger"
	"github.com/hitoshi/newsaic/internal/media"
	"github.com/hitoshi/newsaic/internal/metrics"
	"github.com/hitoshi/newsaic/internal/middleware"
	"github.com/hitoshi/newsaic/internal/security"
	"github.com/hitoshi/newsaic/internal/validation"
	"github.com/hitoshi/newsaic/internal/visitor"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envがあれば読み込む。既存の環境変数は上書きしない
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. 設定されたログレベルで作り直す
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("backend_base_url", cfg.BackendBaseURL),
		slog.String("public_base_url", cfg.PublicBaseURL),
	)

	return runServe(cfg)
}

// server はHTTPサーバーと、停止時に解放すべきリソースをまとめる。
type server struct {
	http        *http.Server
	rateLimiter *middleware.RateLimiter
}

// newServer は全依存関係をワイヤリングし、起動前のHTTPサーバーを構築する。
func newServer(cfg *config.Config, log *slog.Logger) *server {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. セキュリティ・メディア
	guard := security.NewSafeURLGuard(cfg.MediaAllowedHosts...)
	thumbnails := media.NewThumbnailFetcher(guard, media.Options{
		Timeout: cfg.MediaFetchTimeout,
		MaxSize: cfg.MediaMaxSize,
		Metrics: collector,
		Logger:  log,
	})
	sanitizer := security.NewArticleSanitizer()

	// 3. 訪問者ごとのゲートウェイとコントローラー
	validator := validation.New()
	factory := func(id string) (*visitor.Visitor, error) {
		visitorLogger := log.With(slog.String("visitor_id", id))
		client, err := gateway.NewClient(gateway.Options{
			BaseURL: cfg.BackendBaseURL,
			Logger:  visitorLogger,
			Metrics: collector,
			Timeout: cfg.BackendTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}
		ctrl := controller.New(client, client, controller.Options{
			AuthCheckTimeout: cfg.AuthCheckTimeout,
			LoginSettleDelay: cfg.LoginSettleDelay,
			Logger:           visitorLogger,
			Validator:        validator,
		})
		return &visitor.Visitor{ID: id, Controller: ctrl, Backend: client}, nil
	}
	visitors := visitor.NewRegistry(cfg.VisitorMaxSessions, cfg.VisitorSessionTTL, factory, collector)

	// 4. レート制限（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
	rateLimiterCfg.AuthBurst = cfg.RateLimitAuth
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)

	// 5. ルーター
	router := handler.NewRouter(&handler.RouterDeps{
		Visitors: visitors,
		VisitorCookie: middleware.VisitorCookieConfig{
			Secure: cfg.CookieSecure,
			MaxAge: cfg.VisitorSessionTTL,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,
		Sanitizer:   sanitizer,
		Thumbnails:  thumbnails,
		Gatherer:    reg,
		Logger:      log,
		Now:         time.Now,
	})

	// WriteTimeoutはバックエンド呼び出し（質問応答など）が終わるまで待てる長さにする。
	// バックエンドの上限が無い場合はWriteTimeoutも設けない
	var writeTimeout time.Duration
	if cfg.BackendTimeout > 0 {
		writeTimeout = cfg.BackendTimeout + 15*time.Second
	}

	return &server{
		http: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		rateLimiter: rateLimiter,
	}
}

// runServe はBFFサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	srv := newServer(cfg, slog.Default())
	defer srv.rateLimiter.Stop()

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("BFF server starting",
			slog.String("addr", srv.http.Addr),
		)
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server listen failed: %w", err)
	case <-stop:
	}
	slog.Info("shutting down BFF server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("BFF server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
