package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/rentwheels/api"
	"github.com/Domenick1991/rentwheels/config"
	"github.com/Domenick1991/rentwheels/internal/service/booking"
	"github.com/Domenick1991/rentwheels/internal/service/vehicles"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerSpecFile = "rentwheels.swagger.json"

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg *config.Config, vehicleSvc vehicles.VehicleUseCase, bookingSvc booking.BookingUseCase) error {
	srv := NewHTTPServer(cfg, vehicleSvc, bookingSvc)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", cfg.HTTP.Address).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		log.Info("http server stopped")
		return nil
	}
}

func NewHTTPServer(cfg *config.Config, vehicleSvc vehicles.VehicleUseCase, bookingSvc booking.BookingUseCase) *http.Server {
	if cfg.App.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(vehicleSvc, bookingSvc)

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerSpecFile))))
	}

	return &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
