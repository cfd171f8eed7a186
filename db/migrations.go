package db

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed psql_schema/*.sql
var migrationFiles embed.FS

// RunMigrations applies all pending schema migrations from psql_schema/.
func (s *DB) RunMigrations(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(s.conn)
	defer sqlDB.Close()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{ctx})
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, sqlDB, "psql_schema"); err != nil {
		return fmt.Errorf("couldn't run migrations: %w", err)
	}
	return nil
}

type gooseLogger struct {
	ctx context.Context
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	slog.ErrorContext(l.ctx, fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	slog.InfoContext(l.ctx, fmt.Sprintf(format, v...))
}
