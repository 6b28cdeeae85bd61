package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблицы журнала. Создаются идемпотентно.
const schema = `
CREATE TABLE IF NOT EXISTS deployments (
	id          UUID PRIMARY KEY,
	module_name TEXT NOT NULL,
	job         JSONB NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS deployments_status_idx ON deployments (status, created_at);
CREATE INDEX IF NOT EXISTS deployments_module_idx ON deployments (module_name);

CREATE TABLE IF NOT EXISTS deployment_steps (
	id                UUID PRIMARY KEY,
	deployment_id     UUID NOT NULL REFERENCES deployments (id) ON DELETE CASCADE,
	idx               INTEGER NOT NULL,
	stack_name        TEXT NOT NULL,
	region_name       TEXT NOT NULL,
	phase             TEXT NOT NULL,
	status            TEXT NOT NULL,
	polls             INTEGER NOT NULL DEFAULT 0,
	last_stack_status TEXT,
	error             TEXT,
	signal_attempted  BOOLEAN NOT NULL DEFAULT FALSE,
	started_at        TIMESTAMPTZ,
	finished_at       TIMESTAMPTZ,
	UNIQUE (deployment_id, idx)
);
`

// EnsureSchema создаёт таблицы, если их ещё нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
