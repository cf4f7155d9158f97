package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Requests slower than this log at warn regardless of the configured
// request log level.
const slowRequestThreshold = 500 * time.Millisecond

// RequestLogger emits one structured line per request. Server errors
// escalate to error and slow requests to warn, so both stay visible when
// routine request logging runs at debug.
func RequestLogger(log zerolog.Logger, level zerolog.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		event := log.WithLevel(level)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			event = log.Error()
		case latency > slowRequestThreshold:
			event = log.Warn().Bool("http.slow", true)
		}

		event.
			Str("http.client_ip", c.ClientIP()).
			Str("http.method", c.Request.Method).
			Str("http.path", c.Request.URL.Path).
			Str("http.query", c.Request.URL.RawQuery).
			Int("http.status", c.Writer.Status()).
			Dur("http.latency", latency).
			Msg("HTTP request")
	}
}

// CORS builds the cross-origin policy from the comma separated origin
// list in config. An empty list admits any origin, the local development
// default. The API is GET/POST only.
func CORS(allowedOrigins string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.MaxAge = 12 * time.Hour

	if origins := SplitOrigins(allowedOrigins); len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowAllOrigins = true
	}

	return cors.New(cfg)
}

// SplitOrigins parses the ALLOWED_ORIGINS format: comma separated,
// surrounding whitespace ignored, empty entries dropped.
func SplitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Timeout bounds request handling. Past the deadline the client gets a
// 504 while the handler goroutine is left to run out on its own; the
// overrun is logged with the route so slow endpoints can be found.
func Timeout(limit time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), limit)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			c.Next()
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			log.Warn().
				Str("http.method", c.Request.Method).
				Str("http.path", c.Request.URL.Path).
				Dur("http.limit", limit).
				Msg("Request exceeded time limit")

			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error": "request timed out",
			})
		}
	}
}
