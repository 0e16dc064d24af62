package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_RequestIDAndAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x", func(c *gin.Context) {
		c.Set("account_id", "acct-1")
		if From(c.Request.Context()) == slog.Default() {
			t.Errorf("expected request logger in context")
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["request_id"] != "req-42" || line["account_id"] != "acct-1" || line["status"] != 204.0 {
		t.Fatalf("unexpected summary line %v", line)
	}
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Middleware(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestSummaryLevel(t *testing.T) {
	cases := []struct {
		status int
		errs   bool
		want   slog.Level
	}{
		{200, false, slog.LevelInfo},
		{404, false, slog.LevelWarn},
		{409, false, slog.LevelWarn},
		{500, false, slog.LevelError},
		{201, true, slog.LevelError},
	}
	for _, tc := range cases {
		if got := summaryLevel(tc.status, tc.errs); got != tc.want {
			t.Fatalf("summaryLevel(%d, %v) = %v, want %v", tc.status, tc.errs, got, tc.want)
		}
	}
}

func TestNewTo_TagsServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(&buf, "production")
	l.Debug("hidden")
	l.Info("shown")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected exactly one info line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "talkline" || line["env"] != "production" || line["msg"] != "shown" {
		t.Fatalf("unexpected line %v", line)
	}
}
