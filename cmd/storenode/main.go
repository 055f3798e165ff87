package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimbuskv/broker/internal/adminhttp"
	"github.com/nimbuskv/broker/internal/config"
	"github.com/nimbuskv/broker/pkg/backend"
	"github.com/nimbuskv/broker/pkg/backend/memory"
	"github.com/nimbuskv/broker/pkg/backend/sqlite"
	"github.com/nimbuskv/broker/pkg/bus"
	"github.com/nimbuskv/broker/pkg/frontend"
	"github.com/nimbuskv/broker/pkg/ids"
	"github.com/nimbuskv/broker/pkg/storeactor"
)

func main() {
	configPath := flag.String("config", "storenode.yaml", "path to the YAML config file")
	storeName := flag.String("store", "default", "name of the store this node masters")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg.Logger)

	be, err := newBackend(cfg.Broker.Backend)
	if err != nil {
		log.Error("failed to init backend", "error", err)
		os.Exit(1)
	}
	defer be.Close()

	msgBus := bus.New(cfg.Broker.Store.BusBufferSize)
	defer msgBus.Close()

	self := ids.EntityID{Object: ids.NewActorID()}
	actor := storeactor.NewMaster(*storeName, be, msgBus, self, cfg.Broker.Store.TickInterval, log)
	actor.Start(ctx)
	defer actor.Stop()

	fe := frontend.New(actor, self, cfg.Broker.Store.RequestTimeout)

	admin := adminhttp.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), cfg.Server.ReadHeaderTimeout, log)
	admin.RegisterStore(*storeName, fe, msgBus, actor.EventTopic())
	if err := admin.Start(); err != nil {
		log.Error("failed to start admin http server", "error", err)
		os.Exit(1)
	}

	log.Info("storenode running", "store", *storeName, "port", cfg.Server.Port)
	<-ctx.Done()

	log.Info("storenode shutting down")
	if err := admin.Stop(); err != nil {
		log.Error("admin http shutdown error", "error", err)
	}
}

func newBackend(cfg config.BackendConfig) (backend.Backend, error) {
	switch cfg.Kind {
	case "sqlite":
		return sqlite.Open(cfg.Path)
	default:
		return memory.New(), nil
	}
}
