// Package main provides the brawl engine daemon: it loads content, connects
// to PostgreSQL, and runs the encounter manager until terminated.
package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/config"
	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/flavor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
	"github.com/grumblebean/brawl/internal/game/effects"
	"github.com/grumblebean/brawl/internal/game/encounter"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
	"github.com/grumblebean/brawl/internal/observability"
	"github.com/grumblebean/brawl/internal/scripting"
	"github.com/grumblebean/brawl/internal/server"
	"github.com/grumblebean/brawl/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	guildList := flag.String("guilds", "", "comma-separated guild ids whose open encounters are reconnected at startup")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	cryptoSrc := dice.NewCryptoSource()
	roller := dice.NewLoggedRoller(cryptoSrc, logger)

	// Content registries
	contentStart := time.Now()
	overlay, err := content.LoadOverlay(cfg.Content.Dir)
	if err != nil {
		logger.Fatal("loading content overlay", zap.Error(err))
	}
	factory, err := content.NewFactory(overlay)
	if err != nil {
		logger.Fatal("building content factory", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.String("dir", cfg.Content.Dir),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Enemy hook scripts
	scriptMgr := scripting.NewManager(roller, logger)
	if cfg.Content.ScriptDir != "" {
		if err := scriptMgr.LoadScripts(cfg.Content.ScriptDir, 0); err != nil {
			logger.Fatal("loading enemy scripts", zap.Error(err))
		}
	}
	defer scriptMgr.Close()

	// Database
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	store := postgres.NewStore(pool.DB())

	// Core collaborators
	bus := event.NewBus(store, logger)
	loader := encounter.NewContextLoader(store, factory, logger)
	loader.SetAutoScrapBelow(content.Rarity(cfg.Combat.AutoScrapBelow))
	pipeline := effects.NewPipeline()
	gearMgr := gear.NewManager(factory, roller)
	lootMgr := gear.NewLootManager(factory, gearMgr, roller)
	flavorGen := flavor.NewGenerator(cfg.Flavor, cryptoSrc, logger)

	port := discord.NewRetryingPortWithPolicy(
		discord.NewConsolePort(logger),
		logger,
		cfg.Discord.RetryAttempts,
		cfg.Discord.RetryDelay,
	)

	manager := encounter.NewManager(encounter.Deps{
		Store:    store,
		Bus:      bus,
		Loader:   loader,
		Port:     port,
		Factory:  factory,
		Pipeline: pipeline,
		Roller:   roller,
		Gear:     gearMgr,
		Loot:     lootMgr,
		Flavor:   flavorGen,
		Hooks:    scriptMgr,
		Logger:   logger,
	}, encounter.Config{
		TickInterval: cfg.Combat.TickInterval,
		Countdown:    cfg.Combat.Countdown,
		TurnTimeout:  cfg.Combat.TurnTimeout,
	})

	// The loader hears every event first so engine caches stay warm; the
	// manager routes events into live engines and recovers orphans.
	bus.Register(loader)
	bus.Register(manager)

	supervisor := server.NewSupervisor(logger)
	supervisor.Add("encounter_manager", server.RunFunc(func(runCtx context.Context) error {
		manager.Start(runCtx)
		for _, guildID := range parseGuildIDs(logger, *guildList) {
			if err := manager.ReconnectOrphans(runCtx, guildID); err != nil {
				logger.Error("reconnecting orphans",
					zap.Int64("guild_id", guildID),
					zap.Error(err))
			}
		}
		<-runCtx.Done()
		manager.Wait()
		return nil
	}))

	logger.Info("brawl daemon ready", zap.Duration("startup", time.Since(start)))
	if err := supervisor.Run(ctx); err != nil {
		logger.Fatal("supervisor error", zap.Error(err))
	}
}

func parseGuildIDs(logger *zap.Logger, list string) []int64 {
	var out []int64
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			logger.Warn("skipping invalid guild id", zap.String("value", part))
			continue
		}
		out = append(out, id)
	}
	return out
}
