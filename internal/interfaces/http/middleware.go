package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"whatsapp_crm/internal/infrastructure"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const operatorKey = "operator"

type Middleware struct {
	jwtSecret    []byte
	rateLimiters map[string]*clientLimiter
	idleTimeout  time.Duration
	mu           sync.Mutex
	stop         chan struct{}
	stopOnce     sync.Once
	log          *zap.Logger
	metrics      *infrastructure.Metrics
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMiddleware(secret string, log *zap.Logger, metrics *infrastructure.Metrics) *Middleware {
	m := &Middleware{
		jwtSecret:    []byte(secret),
		rateLimiters: make(map[string]*clientLimiter),
		idleTimeout:  10 * time.Minute,
		stop:         make(chan struct{}),
		log:          log,
		metrics:      metrics,
	}
	go m.cleanup(5 * time.Minute)
	return m
}

// Stop ends the limiter cleanup loop.
func (m *Middleware) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Middleware) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

// sweep drops limiters not used within the idle timeout.
func (m *Middleware) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, l := range m.rateLimiters {
		if now.Sub(l.lastSeen) > m.idleTimeout {
			delete(m.rateLimiters, k)
		}
	}
}

// AuthEnabled is false when no JWT secret is configured.
func (m *Middleware) AuthEnabled() bool {
	return len(m.jwtSecret) > 0
}

func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.AuthEnabled() {
			c.Set(operatorKey, "anonymous")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.jwtSecret, nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			sub, _ := claims.GetSubject()
			c.Set(operatorKey, sub)
			c.Set("role", claims["role"])
		}

		c.Next()
	}
}

// RateLimitPerUser limits requests per authenticated operator (must follow AuthRequired).
func (m *Middleware) RateLimitPerUser(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := c.GetString(operatorKey)
		if operator == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User identity not found for rate limiting"})
			return
		}
		if !m.limiter("user:"+operator, r, b).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RateLimitPerIP guards the public webhook receivers. The client IP is only
// taken from forwarding headers sent by the engine's trusted proxies.
func (m *Middleware) RateLimitPerIP(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.limiter("ip:"+c.ClientIP(), r, b).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (m *Middleware) limiter(key string, r rate.Limit, b int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, exists := m.rateLimiters[key]
	if !exists {
		l = &clientLimiter{limiter: rate.NewLimiter(r, b)}
		m.rateLimiters[key] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

// CORSMiddleware allows Cross-Origin requests
func (m *Middleware) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Webhook-Secret, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RequestLogger logs every request once it completes and feeds the latency
// histogram.
func (m *Middleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			m.log.Error("request", fields...)
		case status >= 400:
			m.log.Warn("request", fields...)
		default:
			m.log.Info("request", fields...)
		}
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:")

		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
