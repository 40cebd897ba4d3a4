package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the full DDL for the three-level hierarchy. Foreign keys are
// declared here even though the adapter re-validates them in each
// transaction: the constraint is the backstop for races the checks miss.
const schema = `
	CREATE TABLE IF NOT EXISTS locations (
		uuid UUID PRIMARY KEY,
		name TEXT NOT NULL CHECK (name <> '')
	);

	CREATE TABLE IF NOT EXISTS containers (
		uuid     UUID PRIMARY KEY,
		created  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated  TIMESTAMPTZ NOT NULL DEFAULT now(),
		name     TEXT CHECK (name <> ''),
		location UUID REFERENCES locations (uuid),

		CONSTRAINT containers_updated_after_created CHECK (updated >= created)
	);

	CREATE TABLE IF NOT EXISTS items (
		uuid        UUID PRIMARY KEY,
		created     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated     TIMESTAMPTZ NOT NULL DEFAULT now(),
		name        TEXT NOT NULL CHECK (name <> ''),
		description TEXT,
		quantity    BIGINT NOT NULL DEFAULT 1 CHECK (quantity >= 0),
		container   UUID NOT NULL REFERENCES containers (uuid),

		CONSTRAINT items_updated_after_created CHECK (updated >= created)
	);

	CREATE INDEX IF NOT EXISTS idx_containers_location
		ON containers (location, created, uuid);

	CREATE INDEX IF NOT EXISTS idx_items_container
		ON items (container, created, uuid);

	CREATE INDEX IF NOT EXISTS idx_locations_name
		ON locations (name, uuid);
`

// RunMigrations creates the inventory tables and indexes if missing.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate inventory schema: %w", err)
	}
	return nil
}
