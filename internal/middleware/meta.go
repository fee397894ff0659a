package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaKey      = "response_meta"
	metaStartKey = "response_meta_start"
	cacheHitKey  = "cache_hit"
)

// WithResponseMeta stamps the request start so ExtractMeta can report processing time.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartKey, time.Now())
		c.Next()
	}
}

// SetMeta records one value for the envelope's meta object.
func SetMeta(c *gin.Context, key string, value interface{}) {
	stored(c)[key] = value
}

// SetCacheHit records whether a read was served from Redis. Clients see it as meta.cache_hit.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, cacheHitKey, hit)
}

// ExtractMeta returns a copy of the recorded values with processing_time_ms added,
// or nil when the handler recorded nothing.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(metaKey)
	if !ok {
		return nil
	}
	values, _ := raw.(map[string]interface{})
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	if start, ok := c.Get(metaStartKey); ok {
		if t, ok := start.(time.Time); ok {
			out["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return out
}

func stored(c *gin.Context) map[string]interface{} {
	if raw, ok := c.Get(metaKey); ok {
		if values, ok := raw.(map[string]interface{}); ok {
			return values
		}
	}
	values := make(map[string]interface{})
	c.Set(metaKey, values)
	return values
}
