package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"shopadmin.app/internal/migrate"
	"shopadmin.app/internal/obs"
	"shopadmin.app/migrations"
)

func main() {
	var (
		dsn            = pflag.String("dsn", os.Getenv("SHOPADMIN_DATABASE_URL"), "PostgreSQL DSN")
		migrationsPath = pflag.String("migrations", "", "directory of SQL migrations (embedded set when empty)")
		seedsPath      = pflag.String("seeds", "", "directory of SQL seeds (embedded set when empty)")
		timeout        = pflag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up|down|seed|status")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger, err := obs.NewLogger(os.Getenv("SHOPADMIN_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("missing DSN: provide via --dsn or SHOPADMIN_DATABASE_URL")
	}
	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		logger.Fatal("open_db", zap.Error(err))
	}
	defer db.Close()

	mgr := migrate.NewManager(db, dirOr(*migrationsPath, migrations.SQL()), dirOr(*seedsPath, migrations.Seeds()))

	cmd := pflag.Arg(0)
	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []migrate.Applied
		history, err = mgr.Status(ctx)
		for _, a := range history {
			fmt.Printf("%s\t%s\n", a.Name, a.AppliedAt.Format(time.RFC3339))
		}
	default:
		logger.Fatal("unknown_command", zap.String("command", cmd))
	}
	if err != nil {
		logger.Fatal("migrate_failed", zap.String("command", cmd), zap.Error(err))
	}
	logger.Info("migrate_done", zap.String("command", cmd))
}

func dirOr(path string, embedded fs.FS) fs.FS {
	if path == "" {
		return embedded
	}
	return os.DirFS(path)
}
