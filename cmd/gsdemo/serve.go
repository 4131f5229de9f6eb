package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/relaysync/gamesync/internal/config"
	"github.com/relaysync/gamesync/internal/gslog"
	gsmetrics "github.com/relaysync/gamesync/internal/metrics"
	"github.com/relaysync/gamesync/internal/udptransport"
	"github.com/relaysync/gamesync/manager"
	"github.com/relaysync/gamesync/transceiver"
	"github.com/relaysync/gamesync/wire"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a gsdemo host: UDP transport, manager, metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a gsdemo config YAML file")
	return cmd
}

func runServe(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger, err := gslog.New(cfg.Log.Dir, cfg.Log.Debug)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger.Infof("starting gsdemo run %s, listening on %s", runID, cfg.Listen.Address)

	udp, err := udptransport.Listen(cfg.Listen.Address, uint32(uuid.New().ID()))
	if err != nil {
		return err
	}
	defer udp.Close()

	reg := prometheus.NewRegistry()
	m := gsmetrics.New(reg)

	mgr := manager.New(udp, cfg.Log.Debug)
	mgr.OnLog(func(level manager.LogLevel, msg string) {
		m.ObserveLog(level, msg)
		switch level {
		case manager.LogDebug:
			logger.Debugf("%s", msg)
		case manager.LogWarn:
			logger.Warnf("%s", msg)
		case manager.LogError:
			logger.Errorf("%s", msg)
		default:
			logger.Infof("%s", msg)
		}
	})
	mgr.OnUnregisteredUpdate(func(wire.GSObject) { m.ObserveUnregisteredUpdate() })
	mgr.OnUnregisteredUnknown(func(*wire.UnknownObject) { m.ObserveUnregisteredUnknown() })

	clock := clockwork.NewRealClock()
	timed := manager.NewTimed(mgr, cfg.Sync.RetransmitMinIntervalMs, cfg.Sync.RetransmitMaxIntervalMs, clock)
	timed.Start()
	defer timed.Stop()

	go func() {
		if err := udp.Serve(mgr.OnMessageReceived); err != nil {
			logger.Errorf("udp serve stopped: %v", err)
		}
	}()

	demoObjectID := wire.ObjectId(1)
	demoTransceiver := transceiver.New(transceiver.Config{
		Mode:              transceiver.Bidirectional,
		Algorithm:         transceiver.AlgorithmTimestamp,
		ExpiryMs:          cfg.Sync.DefaultExpiryMs,
		Debugging:         cfg.Log.Debug,
		Clock:             clock,
		RetransmitReasons: m.RetransmitReasons,
	})
	if err := mgr.RegisterID(demoObjectID, demoTransceiver); err != nil {
		return err
	}
	m.Registered.Set(float64(mgr.Stats().Total))

	var httpServer *http.Server
	if cfg.Metrics.Enabled {
		router := chi.NewRouter()
		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		httpServer = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Infof("metrics listening on %s", cfg.Metrics.Address)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	logger.Infof("caught shutdown signal, stopping")
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}
	return nil
}
