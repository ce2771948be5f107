// Command migrate applies the brawl schema migrations: the encounter and
// event tables the engines replay from, plus gear, economy, and guild
// progression. Usage:
//
//	migrate -config configs/dev.yaml up
//	migrate -config configs/dev.yaml -steps 2 down
//	migrate -config configs/dev.yaml version
//	migrate -config configs/dev.yaml force 3
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/viper"

	"github.com/grumblebean/brawl/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	sourcePath := flag.String("source", "file://migrations", "migration source URL")
	steps := flag.Int("steps", 0, "number of steps for up/down (0 = all)")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("missing command: up, down, version, or force")
	}

	v := viper.New()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("reading config: %v", err)
	}
	var dbCfg config.DatabaseConfig
	if err := v.Sub("database").Unmarshal(&dbCfg); err != nil {
		log.Fatalf("parsing database config: %v", err)
	}

	m, err := migrate.New(*sourcePath, dbCfg.DSN())
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	start := time.Now()
	if err := run(m, flag.Args(), *steps); err != nil {
		if err == migrate.ErrNoChange {
			report(m, "no changes", start)
			return
		}
		log.Fatalf("migration failed: %v", err)
	}
	report(m, flag.Arg(0), start)
}

func run(m *migrate.Migrate, args []string, steps int) error {
	switch args[0] {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	case "version":
		return migrate.ErrNoChange
	case "force":
		// Recovery path for a dirty schema after an interrupted run.
		if len(args) < 2 {
			return fmt.Errorf("force requires a version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid force version %q: %w", args[1], err)
		}
		return m.Force(v)
	default:
		return fmt.Errorf("unknown command %q: want up, down, version, or force", args[0])
	}
}

func report(m *migrate.Migrate, action string, start time.Time) {
	version, dirty, _ := m.Version()
	fmt.Fprintf(os.Stdout, "%s: version=%d dirty=%v [%s]\n",
		action, version, dirty, time.Since(start))
}
