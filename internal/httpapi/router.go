// Package httpapi serves the webhook endpoint, the health check and
// Prometheus metrics over gin.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/orderbot/core/config"
	"github.com/m3rciful/orderbot/core/logger"
)

// HealthText is returned by GET /.
const HealthText = "KALI Order Bot is running!"

// SecretHeader carries the webhook secret token set on registration.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateProcessor runs all handlers for one update before returning.
type UpdateProcessor interface {
	ProcessUpdate(u tele.Update)
}

// FailureSource reports whether handling an update failed.
type FailureSource interface {
	Take(updateID int) error
}

// Options configures the router.
type Options struct {
	Path        string
	SecretToken string
	Bot         UpdateProcessor
	Failures    FailureSource
	Gatherer    prometheus.Gatherer
}

// NewRouter builds the gin engine. Webhook updates are processed one at a
// time in arrival order.
func NewRouter(opts Options) *gin.Engine {
	if opts.Path == "" {
		opts.Path = coreconfig.DefaultWebhookPath
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLog())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, HealthText)
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	wh := &webhook{bot: opts.Bot, failures: opts.Failures}
	r.POST(opts.Path, secretCheck(opts.SecretToken), wh.handle)
	return r
}

func secretCheck(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.LogEvent(c.Request.Context(), logger.HTTP, slog.LevelWarn, "webhook.auth",
				slog.String("status", "fail"),
				slog.Int("http_code", http.StatusUnauthorized),
			)
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

type webhook struct {
	mu       sync.Mutex
	bot      UpdateProcessor
	failures FailureSource
}

func (w *webhook) handle(c *gin.Context) {
	ctx := c.Request.Context()
	var upd tele.Update
	if err := json.NewDecoder(c.Request.Body).Decode(&upd); err != nil {
		logger.LogEvent(ctx, logger.HTTP, slog.LevelError, "webhook.decode",
			slog.String("status", "fail"),
			logger.Err(err),
		)
		c.String(http.StatusInternalServerError, "Error")
		return
	}

	w.mu.Lock()
	w.bot.ProcessUpdate(upd)
	var err error
	if w.failures != nil {
		err = w.failures.Take(upd.ID)
	}
	w.mu.Unlock()

	if err != nil {
		logger.LogEvent(ctx, logger.HTTP, slog.LevelError, "webhook.update",
			slog.String("status", "fail"),
			slog.Int("update_id", upd.ID),
			logger.Err(err),
		)
		c.String(http.StatusInternalServerError, "Error")
		return
	}
	c.String(http.StatusOK, "OK")
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.LogEvent(c.Request.Context(), logger.HTTP, level, "http.request",
			slog.String("op", c.Request.Method+" "+c.FullPath()),
			slog.Int("http_code", c.Writer.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	}
}
