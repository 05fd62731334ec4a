package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/database"
)

// getOne scans a single row into dest. Ids Postgres cannot parse as UUIDs match no row, so
// they surface as sql.ErrNoRows like any other unknown id.
func getOne(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, database.Conn(ctx, db), dest, query, args...)
	if database.IsInvalidInput(err) {
		return sql.ErrNoRows
	}
	return err
}
