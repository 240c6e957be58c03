package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблицы метаданных. Запросы идемпотентны.
const schema = `
CREATE TABLE IF NOT EXISTS folders (
	id         BIGSERIAL PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	parent_id  BIGINT REFERENCES folders(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS folders_parent_id_idx ON folders (parent_id);

CREATE TABLE IF NOT EXISTS files (
	id         BIGSERIAL PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	size       BIGINT NOT NULL DEFAULT 0,
	mime_type  VARCHAR(100) NOT NULL DEFAULT '',
	remote_id  BIGINT NOT NULL DEFAULT 0,
	location   TEXT NOT NULL DEFAULT '',
	folder_id  BIGINT REFERENCES folders(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS files_folder_id_idx ON files (folder_id);
`

// EnsureSchema создаёт таблицы, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
