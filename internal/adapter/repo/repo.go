// Package repo implements the domain repositories on PostgreSQL.
package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"server/internal/infra"
)

// DB is the connection surface the repositories need. *pgxpool.Pool
// satisfies it.
type DB interface {
	infra.SQLExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}
