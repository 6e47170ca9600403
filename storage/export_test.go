package storage

import "github.com/jackc/pgx/v5/pgxpool"

// Pool exposes the connection pool to tests that inspect rows directly.
func (pgr *PostgresRepo) Pool() *pgxpool.Pool {
	return pgr.pool
}
