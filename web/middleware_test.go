package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"barsim/config"
	"barsim/i18n"
)

func TestParseAcceptLanguage(t *testing.T) {
	if err := i18n.Init("zh-CN"); err != nil {
		t.Fatalf("i18n初始化失败: %v", err)
	}

	cases := []struct {
		header string
		want   string
	}{
		{"zh-CN,zh;q=0.9,en;q=0.8", "zh-CN"},
		{"zh", "zh-CN"},
		{"en-US", "en-US"},
		{"en;q=0.5", "en-US"},
		{"fr-FR", "zh-CN"}, // 不支持的语言回落到系统语言
		{"", "zh-CN"},
	}
	for _, tc := range cases {
		if got := parseAcceptLanguage(tc.header); got != tc.want {
			t.Errorf("parseAcceptLanguage(%q) = %q, 期望 %q", tc.header, got, tc.want)
		}
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Web.Enabled = true
	return NewServer(cfg, nil, nil)
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)

	r := gin.New()
	s.setupRoutes(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("/health 状态码 = %d, 期望 200", w.Code)
	}
}

func TestSessionsWithoutDatabase(t *testing.T) {
	s := testServer(t)

	r := gin.New()
	s.setupRoutes(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/sessions 无数据库时状态码 = %d, 期望 503", w.Code)
	}
}

func TestBacktestWithoutFetcher(t *testing.T) {
	s := testServer(t)

	r := gin.New()
	s.setupRoutes(r)

	body := `{"strategy":"sma_cross","symbol":"BTCUSDT","interval":"1m","start_time":"2024-01-01T00:00:00Z","end_time":"2024-01-02T00:00:00Z","initial_balance":10000}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/backtest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/backtest 无数据源时状态码 = %d, 期望 503", w.Code)
	}
}
