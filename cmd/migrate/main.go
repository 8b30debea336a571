// Applies the database schema. Safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgconn"

	"todo-maistro/internal/config"
	pg "todo-maistro/internal/infra/db/postgres"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id     TEXT PRIMARY KEY,
		name        TEXT,
		location    TEXT,
		job         TEXT,
		connections JSONB,
		interests   JSONB,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS todos (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		task             TEXT NOT NULL,
		time_to_complete INTEGER,
		deadline         TIMESTAMPTZ,
		solutions        JSONB,
		status           TEXT NOT NULL DEFAULT 'not started',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS todos_user_id_idx ON todos (user_id);`,
	`CREATE TABLE IF NOT EXISTS instructions (
		user_id    TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS thread_messages (
		id         BIGSERIAL PRIMARY KEY,
		thread_id  TEXT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS thread_messages_thread_id_idx ON thread_messages (thread_id, id);`,
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "42P07" {
				continue // relation already exists (concurrent migrate)
			}
			log.Fatalf("migrate: %v", err)
		}
	}
	log.Println("schema up to date")
}
