package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/foodie/internal/logging"
)

// Run serves h on addr until ctx is done, then shuts down with a short grace period.
func Run(ctx context.Context, addr string, h http.Handler, log logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "Starting admin HTTP server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(ctx, "Stopping admin HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
