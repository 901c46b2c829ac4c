package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kermitt2/grobid-client-go/internal/handler"
	"github.com/kermitt2/grobid-client-go/internal/routes"
)

func NewServer(statusHandler *handler.StatusHandler) *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery())
	api := g.Group("/api/v1")
	routes.RegisterRoutes(api, statusHandler)
	return g
}

// Serve runs the status API on addr until ctx is done.
func Serve(ctx context.Context, addr string, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("📡 Status API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
