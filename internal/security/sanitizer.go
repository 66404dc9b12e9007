// Package security は記事表示とメディア取得のためのセキュリティ機能を提供する。
//
// Sanitizerはバックエンドから受け取った記事HTML（要約や本文）を
// 許可リストベースのbluemondayポリシーで無害化する。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は記事HTMLの無害化のインターフェース。
type Sanitizer interface {
	// Sanitize は許可タグのみを残した安全なHTMLを返す。
	// 空文字列には空文字列を返し、同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// ArticleSanitizer は記事HTML用のSanitizer実装。
type ArticleSanitizer struct {
	policy *bluemonday.Policy
}

// NewArticleSanitizer は記事表示用のポリシーを構築する。
//   - 許可タグ: p, br, ul, ol, li, blockquote, strong, em, b, i, h2, h3, figure, figcaption, a
//   - aタグ: href（http/https/mailto）のみ許可、target="_blank" と rel="noopener noreferrer" を付与
//   - 画像や埋め込みは除去する（サムネイルはプロキシ経由で別途表示する）
func NewArticleSanitizer() *ArticleSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em", "b", "i",
		"h2", "h3", "figure", "figcaption",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &ArticleSanitizer{policy: p}
}

// Sanitize はHTMLを無害化する。
func (s *ArticleSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}
