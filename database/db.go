package database

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dbclone/common"
)

// --- ENV helpers ---

func dsnFromEnv() (string, error) {
	if s := common.Env("DBCLONE_DB_DSN", ""); s != "" {
		return s, nil
	}
	host := common.Env("DBCLONE_DB_HOST", "postgres")
	port := common.Env("DBCLONE_DB_PORT", "5432")
	user := common.Env("DBCLONE_DB_USER", "dbclone")
	name := common.Env("DBCLONE_DB_NAME", "dbclone")
	ssl := common.Env("DBCLONE_DB_SSLMODE", "disable")
	pass, err := common.ReadSecretMaybeFile(common.Env("DBCLONE_DB_PASS", "dbclone"))
	if err != nil {
		return "", fmt.Errorf("read DBCLONE_DB_PASS: %w", err)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, name, ssl), nil
}

// InitDBFromEnv connects the metadata store pool and applies pending
// migrations. The store location is resolved here, once per process; a
// failure is a configuration error and aborts startup.
func InitDBFromEnv(ctx context.Context) error {
	dsn, err := dsnFromEnv()
	if err != nil {
		return err
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return err
	}
	if n, err := strconv.Atoi(common.Env("DBCLONE_DB_MAX_CONNS", "8")); err == nil {
		cfg.MaxConns = int32(n)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return err
	}
	common.DB = pool
	common.InfoLog("db: connected to Postgres (max_conns=%d)", cfg.MaxConns)

	if common.EnvBool("DBCLONE_DB_MIGRATE", "true") {
		if err := runMigrations(ctx, pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	return nil
}

// --- Migrations ---

//go:embed migrations/*.sql
var migrationsFS embed.FS

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version int PRIMARY KEY)`); err != nil {
		return err
	}
	var current int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version),0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	type mig struct {
		v    int
		name string
	}
	var list []mig
	for _, e := range entries {
		n := e.Name()
		if !strings.HasSuffix(n, ".sql") {
			continue
		}
		// files like 001_init.sql, 002_more.sql
		base := strings.SplitN(n, "_", 2)[0]
		v, _ := strconv.Atoi(strings.TrimLeft(base, "0"))
		if v == 0 && base != "0" {
			continue
		}
		if v > current {
			list = append(list, mig{v: v, name: n})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].v < list[j].v })

	for _, m := range list {
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + m.name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, m.v); err != nil {
			return err
		}
		common.InfoLog("db: applied migration %s", m.name)
	}

	return tx.Commit(ctx)
}
