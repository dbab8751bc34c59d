// launching the server, wiring the try-on pipeline
package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/vton/config"
	"github.com/ds124wfegd/vton/internal/pkg/imageprep"
	"github.com/ds124wfegd/vton/internal/pkg/inference"
	"github.com/ds124wfegd/vton/internal/pkg/kafka"
	"github.com/ds124wfegd/vton/internal/pkg/storage"
	"github.com/ds124wfegd/vton/internal/service"
	"github.com/ds124wfegd/vton/internal/transport"
	"github.com/gin-gonic/gin"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(logrus.StandardLogger().WriterLevel(logrus.ErrorLevel), "SERVER ERROR: ", 0),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewHandler assembles the try-on pipeline behind the HTTP routes.
func NewHandler(cfg *config.Config, publisher kafka.Publisher) http.Handler {
	source := storage.NewImageSource(cfg.Images.LocalRoot)
	fetcher := imageprep.NewHTTPFetcher(cfg.Images.FetchTimeout)
	normalizer := imageprep.NewNormalizer(cfg.Images.MaxDimension, cfg.Images.JPEGQuality, fetcher, source)
	dispatcher := inference.NewDispatcher(inference.NewPredictor(cfg.Replicate.APIToken))
	vtonService := service.NewTryOnService(cfg.Replicate, normalizer, dispatcher, publisher)
	return transport.InitRoutes(transport.NewVTONHandler(vtonService))
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(new(logrus.JSONFormatter))
	if cfg.Server.Debug {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if !cfg.Replicate.Configured() {
		logrus.Warn("REPLICATE_API_TOKEN is empty, try-on requests will fail")
	}

	publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logrus.Errorf("error occured on closing event publisher: %s", err.Error())
		}
	}()

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, NewHandler(cfg, publisher)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"host":          cfg.Server.Host,
		"port":          cfg.Server.Port,
		"default_model": cfg.Replicate.DefaultModel,
	}).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

}
