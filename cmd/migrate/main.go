package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/config"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/database"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/telemetry"
)

const defaultMigrationsDir = "internal/infrastructure/database/migrations"

var migrationName = regexp.MustCompile(`^(\d+)_[a-z0-9_]+\.(up|down)\.sql$`)

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath, "Path to configuration file")
		action     = flag.String("action", "up", "Migration action: up, down, status, create")
		name       = flag.String("name", "", "Migration name (for create action)")
		steps      = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
		dir        = flag.String("dir", defaultMigrationsDir, "Migrations source directory (for create action)")
	)
	flag.Parse()

	if *action == "create" {
		if *name == "" {
			slog.Error("migration name is required for create action")
			os.Exit(2)
		}
		up, down, err := createMigration(*dir, *name)
		if err != nil {
			slog.Error("failed to create migration", "error", err)
			os.Exit(1)
		}
		slog.Info("created migration", "up", up, "down", down)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if cfg.Database.URL == "" {
		slog.Error("database.url is required")
		os.Exit(2)
	}

	slogger, err := telemetry.SetupLogger(cfg.Telemetry.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slogger)

	logger, err := telemetry.NewZapLogger(cfg.Telemetry.LogLevel)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()

	migrator, err := database.NewMigrator(cfg.Database.URL, logger)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(6)
	}
	defer migrator.Close()

	switch *action {
	case "up":
		err = migrator.Up(*steps)
	case "down":
		err = migrator.Down(*steps)
	case "status":
		var version uint
		var dirty bool
		version, dirty, err = migrator.Version()
		if err == nil {
			fmt.Printf("version: %d\ndirty: %t\n", version, dirty)
		}
	default:
		slog.Error("unknown action", "action", *action)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

// createMigration writes an empty up/down pair numbered after the highest existing migration
func createMigration(dir, name string) (string, string, error) {
	slug := strings.Trim(regexp.MustCompile(`[^a-z0-9]+`).ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", "", fmt.Errorf("migration name %q has no usable characters", name)
	}

	next, err := nextSequence(dir)
	if err != nil {
		return "", "", err
	}

	base := fmt.Sprintf("%06d_%s", next, slug)
	up := filepath.Join(dir, base+".up.sql")
	down := filepath.Join(dir, base+".down.sql")

	header := fmt.Sprintf("-- Migration: %s\n", slug)
	if err := os.WriteFile(up, []byte(header+"-- Write your UP migration here\n"), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to create migration file: %w", err)
	}
	if err := os.WriteFile(down, []byte(header+"-- Write your DOWN migration here\n"), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return up, down, nil
}

func nextSequence(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var seqs []int
	for _, e := range entries {
		m := migrationName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seqs = append(seqs, n)
	}
	if len(seqs) == 0 {
		return 1, nil
	}
	sort.Ints(seqs)
	return seqs[len(seqs)-1] + 1, nil
}
