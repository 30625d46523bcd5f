package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// CacheMiddleware caches GET responses in Redis. Only the static reads use
// it (the routine schedule is immutable between generations); live timeline
// data is never cached.
type CacheMiddleware struct {
	cache  *cache.Client
	prefix string
	ttl    time.Duration
}

func NewCacheMiddleware(c *cache.Client, prefix string, ttl time.Duration) *CacheMiddleware {
	return &CacheMiddleware{
		cache:  c,
		prefix: prefix,
		ttl:    ttl,
	}
}

// responseBuffer mirrors writes into a buffer so successful responses can
// be stored after the handler ran.
type responseBuffer struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func newResponseBuffer(original gin.ResponseWriter) *responseBuffer {
	return &responseBuffer{
		ResponseWriter: original,
		body:           bytes.NewBuffer(nil),
	}
}

func (r *responseBuffer) Write(b []byte) (int, error) {
	r.ResponseWriter.Write(b)
	return r.body.Write(b)
}

func (r *responseBuffer) WriteString(s string) (int, error) {
	r.ResponseWriter.WriteString(s)
	return r.body.WriteString(s)
}

// CacheResponse serves a stored response when one exists, otherwise lets
// the handler run and stores its output on a 200.
func (m *CacheMiddleware) CacheResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := m.cacheKey(c)
		if cached, err := m.cache.Get(c.Request.Context(), key); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		writer := c.Writer
		buff := newResponseBuffer(writer)
		c.Writer = buff

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := m.cache.Set(c.Request.Context(), key, buff.body.String(), m.ttl); err != nil {
				log.Error("Failed to cache response", zap.Error(err))
			}
		}
		c.Writer = writer
	}
}

// CacheInvalidate clears matching entries after a successful write.
func (m *CacheMiddleware) CacheInvalidate(patterns ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			for _, pattern := range patterns {
				key := fmt.Sprintf("%s:%s", m.prefix, pattern)
				if err := m.cache.ClearByPattern(c.Request.Context(), key); err != nil {
					log.Error("Failed to invalidate cache",
						zap.Error(err),
						zap.String("pattern", pattern))
				}
			}
		}
	}
}

func (m *CacheMiddleware) cacheKey(c *gin.Context) string {
	userID, _ := GetUserID(c)
	return fmt.Sprintf("%s:%s:%s?%s", m.prefix, userID, c.Request.URL.Path, c.Request.URL.RawQuery)
}
