package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (m *Middleware) limiterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rateLimiters)
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mw := NewMiddleware("", zap.NewNop(), nil)
	t.Cleanup(mw.Stop)

	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(nil))
	r.Use(mw.RateLimitPerIP(1, 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	var codes []int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 200, 429, 429}, codes)
	assert.Equal(t, 1, mw.limiterCount())
}

func TestSetupRoutesTrustsNoProxiesByDefault(t *testing.T) {
	s := newTestServer(t, "", "")

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/evolution", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		s.router.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1, s.mw.limiterCount())
}

func TestLimiterSweepDropsIdleClients(t *testing.T) {
	mw := NewMiddleware("", zap.NewNop(), nil)
	t.Cleanup(mw.Stop)

	mw.limiter("ip:1", 1, 1)
	mw.limiter("ip:2", 1, 1)
	require.Equal(t, 2, mw.limiterCount())

	mw.sweep(time.Now())
	assert.Equal(t, 2, mw.limiterCount())

	mw.sweep(time.Now().Add(mw.idleTimeout + time.Second))
	assert.Equal(t, 0, mw.limiterCount())
}
