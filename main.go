package main

import (
	"math/rand"
	"time"

	"github.com/wfunc/courtstream/aggregator"
	"github.com/wfunc/courtstream/broadcast"
	"github.com/wfunc/courtstream/clock"
	"github.com/wfunc/courtstream/config"
	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/monitor"
	"github.com/wfunc/courtstream/persistence"
	"github.com/wfunc/courtstream/server"
	"github.com/wfunc/courtstream/services"
	"github.com/wfunc/courtstream/simulation"
	"github.com/wfunc/courtstream/stream"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the session store. A session can still stream from
	// memory when the database is down; it just loses durability.
	var store persistence.Store
	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Warnf("Database unavailable, using in-memory store: %v", err)
		store = persistence.NewMemoryStore()
	} else {
		logger.Log.Info("Database connection successful.")
		store = db
	}
	defer store.Close()

	mon := monitor.NewMonitor("courtstream")
	mon.StartServer(cfg.Server.MetricsAddress)

	hub := broadcast.NewHub()
	hub.OnEvict = func(sessionID, handleID string) {
		mon.IncEvicted()
	}

	agg := aggregator.New(cfg.Feeds.BaseURL, cfg.Feeds.APIKey, cfg.Feeds.Timeout)

	simCfg := simulation.Config{
		ShotChance: cfg.Simulation.ShotChance,
		HomeTeamID: cfg.Simulation.HomeTeamID,
	}
	engines := func(sessionID string) *simulation.Engine {
		return simulation.NewEngine(simCfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	streams := stream.NewManager(agg, cfg.Feeds.Sources, store, hub, clock.New(), cfg.Stream, mon, engines)
	snapshots := services.NewSnapshotService(store)

	gameServer := server.NewGameServer(cfg, store, hub, streams, snapshots, mon)
	defer gameServer.Shutdown()

	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
