package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRun_Healthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"200なら成功", http.StatusOK, false},
		{"503ならエラー", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			u, err := url.Parse(srv.URL)
			if err != nil {
				t.Fatalf("failed to parse server URL: %v", err)
			}
			t.Setenv("SERVER_PORT", u.Port())
			// healthcheckは設定読み込みをスキップする
			t.Setenv("BACKEND_BASE_URL", "")

			var buf bytes.Buffer
			err = Run(&buf, []string{"healthcheck"})
			if (err != nil) != tt.wantErr {
				t.Errorf("Run(healthcheck) error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunHealthcheck_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(srv.URL)
	srv.Close()

	if err := runHealthcheck(u.Port()); err == nil {
		t.Error("停止中のサーバーへのヘルスチェックはエラーになるべき")
	}
}
