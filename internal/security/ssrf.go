package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuard は外部メディア取得時のSSRF防止のインターフェース。
type URLGuard interface {
	// Client はプライベートネットワークへの接続をダイヤル時に拒否するHTTPクライアントを返す。
	Client(timeout time.Duration) *http.Client
	// Check はDNS解決前にURLを静的に検証する。
	Check(rawURL string) error
}

// allowedSchemes は許可するURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedPrefixes は静的検証で拒否するアドレス範囲。
// 解決後のアドレスはsafeurlのダイヤラーが検証する。
var blockedPrefixes = mustPrefixes(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}

// SafeURLGuard はsafeurlを使ったURLGuard実装。
type SafeURLGuard struct {
	allowedHosts map[string]bool // 空の場合は全ての公開ホストを許可
}

// NewSafeURLGuard はURLGuardを生成する。allowedHostsを指定するとそのホストのみ許可する。
func NewSafeURLGuard(allowedHosts ...string) *SafeURLGuard {
	g := &SafeURLGuard{allowedHosts: map[string]bool{}}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			g.allowedHosts[h] = true
		}
	}
	return g
}

// Client はsafeurlでラップしたHTTPクライアントを返す。
// プライベートIP・ループバック・リンクローカル宛ての接続はDNS解決後に拒否される。
func (g *SafeURLGuard) Client(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(config).Client
}

// Check はスキーム・ホスト・IPアドレスを静的に検証する。
func (g *SafeURLGuard) Check(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		addr, _ := netip.AddrFromSlice(ip)
		addr = addr.Unmap()
		for _, p := range blockedPrefixes {
			if p.Contains(addr) {
				return fmt.Errorf("blocked IP address: %s", addr)
			}
		}
	}

	if len(g.allowedHosts) > 0 && !g.hostAllowed(host) {
		return fmt.Errorf("host not in allow list: %s", host)
	}
	return nil
}

// hostAllowed はホストまたはその親ドメインが許可リストにあるかを返す。
func (g *SafeURLGuard) hostAllowed(host string) bool {
	for h := host; h != ""; {
		if g.allowedHosts[h] {
			return true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return false
}
