package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/uartctl/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StatusFunc reports engine state for the health endpoint.
type StatusFunc func() map[string]any

// NewHandler builds the metrics listener routes: /metrics and /healthz.
// A nil validator leaves both routes open.
func NewHandler(status StatusFunc, v auth.Validator) http.Handler {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log.Logger), RequestMetricsMiddleware())
	if v != nil {
		r.Use(RequireToken(v))
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if status != nil {
			for k, v := range status() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	})
	return r
}

// Serve runs the metrics listener until ctx is done.
func Serve(ctx context.Context, addr string, status StatusFunc, v auth.Validator) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(status, v),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Msgf("observability.Serve listening addr=%q", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
