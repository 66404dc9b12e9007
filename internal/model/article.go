// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"
)

// Article はバックエンドから取得したニュース記事を表す。
// 記事はバックエンドが所有し、クライアントはビューの寿命の間だけコピーを保持する。
type Article struct {
	URL                  string          `json:"url,omitempty"` // バックエンド上の自己参照URL
	ID                   ID              `json:"id,omitempty"`
	GuardianID           string          `json:"guardian_id,omitempty"`
	SectionID            string          `json:"section_id,omitempty"`
	SectionName          string          `json:"section_name,omitempty"`
	WebTitle             string          `json:"web_title,omitempty"`
	WebURL               string          `json:"web_url,omitempty"`
	Headline             string          `json:"headline,omitempty"`
	TrailText            string          `json:"trail_text,omitempty"`
	BodyText             string          `json:"body_text,omitempty"`
	Thumbnail            string          `json:"thumbnail,omitempty"`
	FirstPublicationDate Timestamp       `json:"first_publication_date"`
	LastModified         Timestamp       `json:"last_modified"`
	Tags                 []Tag           `json:"tags,omitempty"`
	Authors              []Author        `json:"authors,omitempty"`
	Embedding            json.RawMessage `json:"embedding,omitempty"` // 不透明値としてそのまま保持する

	// Bookmarked は表示時に遅延確認されるブックマーク状態。記事固有の属性ではない。
	Bookmarked bool `json:"-"`
}

// Key は記事の一意キーを返す。guardian_idを優先し、なければidを使う。
// どちらも無い場合は空文字列を返す。
func (a Article) Key() string {
	if a.GuardianID != "" {
		return a.GuardianID
	}
	return string(a.ID)
}

// BackendID はバックエンドのリソースパスに使う識別子を返す。
// id、自己参照URLの末尾セグメント、guardian_idの順に採用する。
func (a Article) BackendID() string {
	if a.ID != "" {
		return string(a.ID)
	}
	if a.URL != "" {
		if u, err := url.Parse(a.URL); err == nil {
			if seg := path.Base(strings.TrimSuffix(u.Path, "/")); seg != "" && seg != "." && seg != "/" {
				return seg
			}
		}
	}
	return a.GuardianID
}

// BookmarkRef はブックマークAPIに渡す記事参照を返す。
// 自己参照URLがあればそれを、なければBackendIDを返す。
func (a Article) BookmarkRef() string {
	if a.URL != "" {
		return a.URL
	}
	return a.BackendID()
}

// PublishedAt は公開日時を返す。公開日時が無い場合はfalseを返す。
func (a Article) PublishedAt() (time.Time, bool) {
	if a.FirstPublicationDate.IsZero() {
		return time.Time{}, false
	}
	return a.FirstPublicationDate.Time, true
}

// ID は文字列または数値で返される識別子を文字列として保持する。
type ID string

// UnmarshalJSON は文字列・数値・nullのいずれも受け付ける。
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// timestampLayouts はバックエンドが返し得る日時フォーマット。
// タイムゾーンの無い日時はサーバーの現地時刻、日付のみはUTCとして解釈する。
var timestampLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999", true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02", false},
}

// Timestamp は解釈できない値をゼロ値として扱う寛容な日時型。
type Timestamp struct {
	time.Time
}

// UnmarshalJSON はnull・空文字列・不正な日時をゼロ値として受け付ける。
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, l := range timestampLayouts {
		loc := time.UTC
		if l.local {
			loc = time.Local
		}
		if parsed, err := time.ParseInLocation(l.layout, s, loc); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// MarshalJSON はゼロ値をnullとして出力する。
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Author は記事の著者。文字列または構造化レコードのどちらでも返される。
type Author struct {
	WebTitle  string `json:"web_title,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// UnmarshalJSON は文字列形式とcamelCase/snake_caseのオブジェクト形式を受け付ける。
func (a *Author) UnmarshalJSON(b []byte) error {
	*a = Author{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &a.WebTitle)
	}
	var raw struct {
		WebTitle       string `json:"web_title"`
		WebTitleCamel  string `json:"webTitle"`
		FirstName      string `json:"first_name"`
		FirstNameCamel string `json:"firstName"`
		LastName       string `json:"last_name"`
		LastNameCamel  string `json:"lastName"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	a.WebTitle = firstNonEmpty(raw.WebTitle, raw.WebTitleCamel)
	a.FirstName = firstNonEmpty(raw.FirstName, raw.FirstNameCamel)
	a.LastName = firstNonEmpty(raw.LastName, raw.LastNameCamel)
	return nil
}

// DisplayName は表示用の著者名を返す。
func (a Author) DisplayName() string {
	if a.WebTitle != "" {
		return a.WebTitle
	}
	if a.FirstName != "" && a.LastName != "" {
		return a.FirstName + " " + a.LastName
	}
	if name := firstNonEmpty(a.FirstName, a.LastName); name != "" {
		return name
	}
	return "Unknown"
}

// Tag は記事のタグ。文字列または {web_title, id} 形式で返される。
type Tag struct {
	Name string
}

// UnmarshalJSON は文字列形式とオブジェクト形式を受け付ける。
func (t *Tag) UnmarshalJSON(b []byte) error {
	*t = Tag{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &t.Name)
	}
	var raw struct {
		WebTitle      string `json:"web_title"`
		WebTitleCamel string `json:"webTitle"`
		ID            string `json:"id"`
		TagID         string `json:"tag_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.Name = firstNonEmpty(raw.WebTitle, raw.WebTitleCamel, raw.ID, raw.TagID)
	return nil
}

// MarshalJSON はタグ名を文字列として出力する。
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Name)
}

// Section はバックエンドのセクション（カテゴリ）メタデータを表す。
type Section struct {
	ID        ID     `json:"id,omitempty"`
	SectionID string `json:"section_id"`
	WebTitle  string `json:"web_title"`
}

// Key はセクションIDを返す。section_idが無い場合はidを使う。
func (s Section) Key() string {
	if s.SectionID != "" {
		return s.SectionID
	}
	return string(s.ID)
}

// ArticlePage はページネーションされた記事一覧を表す。
type ArticlePage struct {
	Count    int
	Next     string
	Previous string
	Results  []Article
}

// HasNext は次ページが存在するかを返す。
func (p *ArticlePage) HasNext() bool {
	return p != nil && p.Next != ""
}

// HasPrevious は前ページが存在するかを返す。
func (p *ArticlePage) HasPrevious() bool {
	return p != nil && p.Previous != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
