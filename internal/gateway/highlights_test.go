package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/hitoshi/newsaic/internal/model"
)

func TestClient_GetDailyHighlights_ResolvesNarration(t *testing.T) {
	c, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/highlights/daily-highlight/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": []map[string]any{
				{"id": 1, "title": "One", "order": 1, "narration": "/media/narrations/1.mp3"},
				{"id": 2, "title": "Two", "order": 2, "narration": "https://cdn.example.com/2.mp3"},
				{"id": 3, "title": "Three", "order": 3},
			},
		})
	}))

	stories, err := c.GetDailyHighlights(context.Background())
	if err != nil {
		t.Fatalf("GetDailyHighlights error: %v", err)
	}
	if len(stories) != 3 {
		t.Fatalf("len = %d, want 3", len(stories))
	}
	if stories[0].Narration != server.URL+"/media/narrations/1.mp3" {
		t.Errorf("Narration[0] = %q", stories[0].Narration)
	}
	if stories[1].Narration != "https://cdn.example.com/2.mp3" {
		t.Errorf("Narration[1] = %q", stories[1].Narration)
	}
	if stories[2].HasNarration() {
		t.Error("story without narration should report none")
	}
}

func TestClient_GetDailyHighlights_EmptyIsNotError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "results": []any{}})
	}))

	stories, err := c.GetDailyHighlights(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stories) != 0 {
		t.Errorf("len = %d, want 0", len(stories))
	}
}

func TestFindStory(t *testing.T) {
	stories := []model.Story{
		{ID: "1", Title: "One"},
		{URL: "http://backend/highlights/daily-highlight/2/", Title: "Two"},
	}

	tests := []struct {
		ref       string
		wantTitle string
		wantOK    bool
	}{
		{"1", "One", true},
		{"2", "Two", true},
		{"http://backend/highlights/daily-highlight/2/", "Two", true},
		{"9", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := FindStory(stories, tt.ref)
			if ok != tt.wantOK || got.Title != tt.wantTitle {
				t.Errorf("FindStory(%q) = %q, %v", tt.ref, got.Title, ok)
			}
		})
	}
}
