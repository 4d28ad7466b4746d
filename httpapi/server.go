// Package httpapi serves a small read-only ops API next to the bot.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/prompt"
)

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Info answers prompt and card queries. *info.Service satisfies it.
type Info interface {
	Card(ctx context.Context, userID string) (model.Card, error)
	Prompt() prompt.Snapshot
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Handlers struct {
	store  Pinger
	info   Info
	logger *zap.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(store Pinger, info Info, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{store: store, info: info, logger: logger.Named("http")}

	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/healthz", h.Health)
	v1 := router.Group("/v1")
	v1.GET("/prompt", h.Prompt)
	v1.GET("/users/:id/card", h.Card)
	return router
}

func (h *Handlers) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Health pings the store.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Prompt returns the schedule snapshot.
func (h *Handlers) Prompt(c *gin.Context) {
	c.JSON(http.StatusOK, h.info.Prompt())
}

// Card returns a participant's progress.
func (h *Handlers) Card(c *gin.Context) {
	card, err := h.info.Card(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("card", zap.String("user_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load card"})
		return
	}
	c.JSON(http.StatusOK, card)
}

// Serve runs the API on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
