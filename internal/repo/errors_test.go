package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsForeignKeyViolation(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503"}
	unique := &pgconn.PgError{Code: "23505"}

	if !isForeignKeyViolation(fmt.Errorf("insert: %w", fk)) {
		t.Error("expected wrapped FK violation to match")
	}
	if isForeignKeyViolation(unique) {
		t.Error("unique violation is not FK violation")
	}
	if isForeignKeyViolation(errors.New("boom")) || isForeignKeyViolation(nil) {
		t.Error("plain errors are not FK violations")
	}
}
