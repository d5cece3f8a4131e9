package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/cmd/custodyd/bootstrap"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/lottery"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/svc"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/pkg/scheduler"

	"go.uber.org/zap"
)

var (
	buildVersion = "unknown"
	buildDate    = "unknown"
	buildUser    = "unknown"
)

// Custody Daemon
func main() {
	// -------------------------------------------------------------------------
	// Logging

	ctx := bootstrap.NewContextWithProductionLogger()
	log := node.Logger(ctx)
	defer log.Sync()

	log.Info("Started : Application initializing",
		zap.String("version", buildVersion),
		zap.String("build_user", buildUser),
		zap.String("build_date", buildDate))
	defer log.Info("Completed")

	// -------------------------------------------------------------------------
	// Config

	cfg := bootstrap.NewConfigFromEnv(ctx)

	// -------------------------------------------------------------------------
	// Start Database / Storage

	log.Info("Started : Initialize database")
	reg := bootstrap.NewRegistry(ctx, cfg)

	// -------------------------------------------------------------------------
	// Access policy

	policy := bootstrap.NewPolicy(ctx, cfg)

	// -------------------------------------------------------------------------
	// Service

	// The in process ledger holds the custody pool. Deployments settling
	// against an external system swap in their own ValueTransfer.
	vt := ledger.NewMemoryLedger()

	dispatcher := svc.NewDispatcher(log, svc.LogSink{Log: log})

	service := svc.New(reg, vt, policy, lottery.HashPicker{}, dispatcher, cfg.Custody.FeeAddress)

	// -------------------------------------------------------------------------
	// Event flushing

	sch := scheduler.New(log)
	sch.ScheduleJob(ctx, scheduler.NewPeriodicProcess("event-flush", dispatcher, 5*time.Second))

	schedulerErrors := make(chan error, 1)
	go func() {
		schedulerErrors <- sch.Run(ctx)
	}()

	// -------------------------------------------------------------------------
	// Start API Service

	server := &http.Server{
		Addr:         cfg.HTTP.ListenAddress,
		Handler:      service.Router(log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this
	// error.
	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Query API running", zap.String("address", cfg.HTTP.ListenAddress))
		serverErrors <- server.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	// Make a channel to listen for an interrupt or terminate signal from the
	// OS. Use a buffered channel because the signal package requires it.
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		log.Fatal("Error starting server", zap.Error(err))

	case err := <-schedulerErrors:
		log.Fatal("Scheduler stopped", zap.Error(err))

	case <-osSignals:
		log.Info("Start shutdown...")

		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Could not stop query API", zap.Error(err))
		}

		if err := sch.Stop(ctx); err != nil {
			log.Error("Could not stop scheduler", zap.Error(err))
		}

		// Deliver whatever the shutdown raced.
		dispatcher.Flush(ctx)
	}
}
