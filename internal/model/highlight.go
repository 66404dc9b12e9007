package model

import (
	"net/url"
	"path"
	"strings"
)

// Story はバックエンドが生成するナレーション付きハイライトストーリー。
// クライアントからは読み取り専用。
type Story struct {
	URL            string    `json:"url,omitempty"`
	ID             ID        `json:"id,omitempty"`
	Title          string    `json:"title"`
	BodyText       string    `json:"body_text"`
	Order          int       `json:"order"`
	Narration      string    `json:"narration,omitempty"`
	SourceArticles []Article `json:"source_articles,omitempty"`
}

// Key はストーリーの参照キーを返す。idを優先し、なければ自己参照URLの末尾セグメントを使う。
func (s Story) Key() string {
	if s.ID != "" {
		return string(s.ID)
	}
	if s.URL == "" {
		return ""
	}
	if u, err := url.Parse(s.URL); err == nil {
		if seg := path.Base(strings.TrimSuffix(u.Path, "/")); seg != "" && seg != "." && seg != "/" {
			return seg
		}
	}
	return s.URL
}

// Matches はref（URLまたはID）がこのストーリーを指すかを判定する。
func (s Story) Matches(ref string) bool {
	if ref == "" {
		return false
	}
	if s.URL != "" && strings.TrimSuffix(s.URL, "/") == strings.TrimSuffix(ref, "/") {
		return true
	}
	return s.Key() == ref
}

// HasNarration は音声ナレーションが存在するかを返す。
func (s Story) HasNarration() bool {
	return s.Narration != ""
}
