package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference — ссылка на несуществующую запись (папку).
	ErrInvalidReference = errors.New("invalid reference")
)

// Коды ошибок PostgreSQL.
const (
	pgForeignKeyViolation = "23503"
)

// isForeignKeyViolation проверяет нарушение внешнего ключа.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
