package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ghostwriter-ai-api/pkg/metrics"
)

// unmatchedRoute 未命中路由的请求统一记为一个 path，避免扫描请求撑爆标签基数
const unmatchedRoute = "unmatched"

// Metrics Prometheus 指标采集中间件，skipPaths 中的路由（探活、指标本身）不计数
func Metrics(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}
		if path == "" {
			path = unmatchedRoute
		}

		start := time.Now()
		c.Next()

		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
