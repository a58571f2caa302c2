package appbuilder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/rabbitmq"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Application struct {
	Logger         *logger.Logger
	Addr           string
	Conn           *amqp.Connection
	WorkerServices []rabbitmq.WorkerService
	Engine         *gin.Engine

	closers []func()
}

// Start launches every worker service, serves HTTP when an address is set and
// blocks until SIGINT or SIGTERM.
func (a *Application) Start() {
	a.Logger.Info("Starting Application runtime...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, ws := range a.WorkerServices {
		a.Logger.Infof("Starting %s WorkerService", ws.GetServiceName())
		go ws.StartService()
	}

	var server *http.Server
	if a.Addr != "" && a.Engine != nil {
		server = &http.Server{Addr: a.Addr, Handler: a.Engine, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			a.Logger.Infof("REST API is now listening on: %s", a.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error(err, "REST API stopped unexpectedly")
				stop()
			}
		}()
	}

	<-ctx.Done()
	a.Logger.Info("Shutting down Application runtime...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error(err, "Graceful HTTP shutdown failed")
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
