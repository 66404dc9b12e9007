// Package gateway はnewsaicバックエンドのREST APIを呼び出すクライアントを提供する。
// 全ての結果はmodel.APIErrorに正規化され、通信例外がこの境界を越えることはない。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/hitoshi/newsaic/internal/metrics"
	"github.com/hitoshi/newsaic/internal/model"
)

const (
	// csrfCookieName はバックエンドが発行するanti-forgeryトークンのCookie名。
	csrfCookieName = "csrftoken"
	// csrfHeaderName はanti-forgeryトークンを送るヘッダー名。
	csrfHeaderName = "X-CSRFToken"
	// maxResponseSize はレスポンスボディの読み取り上限。
	maxResponseSize = 10 << 20
	userAgent       = "Newsaic/1.0 Reader"
)

// Paths はバックエンドのエンドポイントパス。
type Paths struct {
	Login           string
	Logout          string
	Me              string
	Persona         string
	Sections        string
	Register        string
	Bookmarks       string
	Articles        string
	ArticleSections string
	DailyHighlights string
}

// DefaultPaths はnewsaicバックエンドのURL構成に従ったパスを返す。
func DefaultPaths() Paths {
	return Paths{
		Login:           "/users/login/",
		Logout:          "/users/logout/",
		Me:              "/users/me/",
		Persona:         "/users/me/persona/",
		Sections:        "/users/me/sections/",
		Register:        "/users/register/",
		Bookmarks:       "/users/bookmarks/",
		Articles:        "/articles/",
		ArticleSections: "/articles/sections/",
		DailyHighlights: "/highlights/daily-highlight/",
	}
}

// Options はClientの生成オプション。
type Options struct {
	BaseURL   string
	Transport http.RoundTripper // nilの場合はhttp.DefaultTransport
	Logger    *slog.Logger
	Metrics   metrics.MetricsCollector
	Paths     *Paths // nilの場合はDefaultPaths
	Timeout   time.Duration
}

// Client は1訪問者分のバックエンドクライアント。
// Cookie Jarを訪問者ごとに持ち、セッションCookieとanti-forgeryトークンを保持する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    *url.URL
	paths      Paths
}

// NewClient は新しいCookie Jarを持つClientを生成する。
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("バックエンドURLのパースに失敗しました: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("バックエンドURLのスキームが不正です: %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("Cookie Jarの生成に失敗しました: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var mc metrics.MetricsCollector = metrics.Nop{}
	if opts.Metrics != nil {
		mc = opts.Metrics
	}
	paths := DefaultPaths()
	if opts.Paths != nil {
		paths = *opts.Paths
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Jar: jar, Timeout: opts.Timeout},
		logger:     logger,
		metrics:    mc,
		baseURL:    base,
		paths:      paths,
	}, nil
}

// response はバックエンドの生レスポンス。
type response struct {
	Status int
	Body   []byte
}

// resolve は相対パスまたは絶対URLをリクエストURLに変換する。
func (c *Client) resolve(ref string, query url.Values) (*url.URL, error) {
	var u *url.URL
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		parsed, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		u = parsed
	} else {
		u = c.baseURL.JoinPath(ref)
		if strings.HasSuffix(ref, "/") && !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u, nil
}

// csrfToken はJarに保存されたanti-forgeryトークンを返す。
func (c *Client) csrfToken(u *url.URL) string {
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

// do はバックエンドへリクエストを送信する。
// 通信失敗時はレスポンスnilとtransportエラー、非2xx時はレスポンスとAPIErrorを返す。
// outが指定された場合は2xxのボディをデコードする。
func (c *Client) do(ctx context.Context, op, method, ref string, query url.Values, body, out any) (*response, error) {
	start := time.Now()

	u, err := c.resolve(ref, query)
	if err != nil {
		c.metrics.RecordBackendRequest(op, metrics.OutcomeError, time.Since(start))
		return nil, model.NewBackendError(0, "", fmt.Sprintf("不正なリクエスト先です: %s", ref))
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			c.metrics.RecordBackendRequest(op, metrics.OutcomeError, time.Since(start))
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		c.metrics.RecordBackendRequest(op, metrics.OutcomeError, time.Since(start))
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		if token := c.csrfToken(u); token != "" {
			req.Header.Set(csrfHeaderName, token)
		}
		// DjangoはHTTPSでRefererの一致も検査する
		req.Header.Set("Referer", c.baseURL.String()+"/")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordBackendRequest(op, metrics.OutcomeTransport, time.Since(start))
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("operation", op),
			slog.String("url", u.String()),
			slog.String("error", err.Error()),
		)
		return nil, model.NewTransportError(op, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordBackendStatus(resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.RecordBackendRequest(op, metrics.OutcomeTransport, time.Since(start))
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, model.NewTransportError(op, err)
	}
	raw := &response{Status: resp.StatusCode, Body: data}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordBackendRequest(op, metrics.OutcomeError, time.Since(start))
		c.logger.Warn("バックエンドAPIがエラーステータスを返しました",
			slog.String("operation", op),
			slog.Int("http_status", resp.StatusCode),
		)
		return raw, parseErrorBody(resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			c.metrics.RecordBackendRequest(op, metrics.OutcomeError, time.Since(start))
			c.logger.Error("バックエンドAPIのレスポンスのパースに失敗しました",
				slog.String("operation", op),
				slog.String("error", err.Error()),
			)
			return raw, model.NewBackendError(resp.StatusCode, "", "レスポンスJSONのパースに失敗しました。")
		}
	}

	c.metrics.RecordBackendRequest(op, metrics.OutcomeSuccess, time.Since(start))
	return raw, nil
}

// parseErrorBody はエラーレスポンスをAPIErrorに変換する。
// {"detail": "..."} はメッセージに、それ以外のオブジェクトはフィールドエラーにする。
func parseErrorBody(status int, data []byte) *model.APIError {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return model.NewBackendError(status, "", http.StatusText(status))
	}

	detail := ""
	if raw, ok := obj["detail"]; ok {
		detail = messageOf(raw)
		delete(obj, "detail")
	}
	for _, k := range []string{"success", "bookmarked"} {
		delete(obj, k)
	}

	fields := map[string]string{}
	flattenFieldErrors("", obj, fields)
	if status == http.StatusBadRequest && len(fields) > 0 {
		if nf, ok := fields["non_field_errors"]; ok && detail == "" {
			detail = nf
		}
		return model.NewValidationError(detail, fields)
	}
	return model.NewBackendError(status, detail, http.StatusText(status))
}

// flattenFieldErrors はDRFのネストしたフィールドエラーを "parent.child" キーに平坦化する。
func flattenFieldErrors(prefix string, obj map[string]json.RawMessage, out map[string]string) {
	for k, raw := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil {
			flattenFieldErrors(key, nested, out)
			continue
		}
		// [{...}, {...}] 形式（リスト要素ごとのエラー）
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			var msgs []string
			for i, item := range items {
				var itemObj map[string]json.RawMessage
				if err := json.Unmarshal(item, &itemObj); err == nil {
					flattenFieldErrors(fmt.Sprintf("%s.%d", key, i), itemObj, out)
					continue
				}
				if m := messageOf(item); m != "" {
					msgs = append(msgs, m)
				}
			}
			if len(msgs) > 0 {
				out[key] = strings.Join(msgs, " ")
			}
			continue
		}
		if m := messageOf(raw); m != "" {
			out[key] = m
		}
	}
}

// messageOf は文字列または文字列リストのJSON値をメッセージにする。
func messageOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}
	return ""
}

// envelope はDRFのページネーションレスポンス。
type envelope[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// decodeList はページネーションエンベロープまたは配列をフラットな列に正規化する。
// nullや空ボディは空の列として扱う。
func decodeList[T any](data []byte) ([]T, *envelope[T], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, err
		}
		if items == nil {
			items = []T{}
		}
		return items, nil, nil
	}
	var env envelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, nil, err
	}
	if env.Results == nil {
		env.Results = []T{}
	}
	return env.Results, &env, nil
}

// getList はGETでリストを取得し正規化する。
func getList[T any](ctx context.Context, c *Client, op, ref string, query url.Values) ([]T, *envelope[T], error) {
	raw, err := c.do(ctx, op, http.MethodGet, ref, query, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	items, env, err := decodeList[T](raw.Body)
	if err != nil {
		c.logger.Error("リストレスポンスのパースに失敗しました",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, nil, model.NewBackendError(raw.Status, "", "レスポンスJSONのパースに失敗しました。")
	}
	return items, env, nil
}
