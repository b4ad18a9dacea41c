package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/cache"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

// newTestUserService returns the real service over an in-memory SQLite
// database.
func newTestUserService(t *testing.T) *services.UserService {
	t.Helper()

	db, err := dbx.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", gormlogger.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close(db) })

	rm := repomanager.NewGormRepositoryManager()
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	return services.NewUserService(db, rm, nil, logging.Nop{})
}

// newTestRouter wires the real service and a fresh cache.
func newTestRouter(t *testing.T) (*gin.Engine, *cache.ResponseCache) {
	t.Helper()

	c := cache.New(time.Minute)
	r := NewRouter(RouterConfig{
		AppName: "userhub",
		Version: "test",
		Users:   newTestUserService(t),
		DB:      okPinger{},
		Cache:   c,
		Logger:  logging.Nop{},
	})
	return r, c
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Fatalf("expected status %d, got %d (body %s)", expected, w.Code, w.Body.String())
	}
}

func userBody(name, email string) map[string]any {
	return map[string]any{"user": map[string]any{"name": name, "email": email}}
}
