package repo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/Cloudbox/internal/domain"
)

// fakeDB запоминает последний запрос и отвечает заготовленным результатом.
type fakeDB struct {
	sql  string
	args []any

	tag    pgconn.CommandTag
	err    error
	rowErr error
	count  int64
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return f.tag, f.err
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sql, f.args = sql, args
	return nil, errors.New("query not supported")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return fakeRow{db: f}
}

type fakeRow struct{ db *fakeDB }

func (r fakeRow) Scan(dest ...any) error {
	if r.db.rowErr != nil {
		return r.db.rowErr
	}
	if n, ok := dest[0].(*int64); ok && len(dest) == 1 {
		*n = r.db.count
	}
	return nil
}

func TestAttachRemote_UpdatesByID(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	r := NewFileRepo(db)

	if err := r.AttachRemote(context.Background(), 7, 42, "bucket/42"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if !strings.Contains(db.sql, "UPDATE files SET remote_id = $2, location = $3 WHERE id = $1") {
		t.Errorf("unexpected sql %q", db.sql)
	}
	if len(db.args) != 3 || db.args[0] != int64(7) || db.args[1] != int64(42) || db.args[2] != "bucket/42" {
		t.Errorf("unexpected args %v", db.args)
	}
}

func TestAttachRemote_MissingRecord(t *testing.T) {
	r := NewFileRepo(&fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")})

	err := r.AttachRemote(context.Background(), 7, 42, "bucket/42")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAttachRemote_DBError(t *testing.T) {
	r := NewFileRepo(&fakeDB{err: errors.New("conn reset")})

	err := r.AttachRemote(context.Background(), 7, 42, "")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}

func TestCountPending(t *testing.T) {
	db := &fakeDB{count: 3}
	r := NewFileRepo(db)

	n, err := r.CountPending(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
	if !strings.Contains(db.sql, "WHERE remote_id = 0") {
		t.Errorf("pending files are those without remote id, sql %q", db.sql)
	}
}

func TestGetByID_NoRows(t *testing.T) {
	r := NewFileRepo(&fakeDB{rowErr: pgx.ErrNoRows})

	_, err := r.GetByID(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_UnknownFolder(t *testing.T) {
	r := NewFileRepo(&fakeDB{rowErr: &pgconn.PgError{Code: pgForeignKeyViolation}})
	folder := int64(99)

	err := r.Create(context.Background(), &domain.File{Name: "a.txt", FolderID: &folder})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("expected ErrInvalidReference, got %v", err)
	}
}

// TestFileRepo_Postgres гоняет запросы на живой БД.
// Нужен CLOUDBOX_TEST_DATABASE_URL, иначе пропускается.
func TestFileRepo_Postgres(t *testing.T) {
	dsn := os.Getenv("CLOUDBOX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CLOUDBOX_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatal(err)
	}

	r := NewFileRepo(pool)

	before, err := r.CountPending(ctx)
	if err != nil {
		t.Fatal(err)
	}

	f := &domain.File{Name: "pending.txt", Size: 5}
	if err := r.Create(ctx, f); err != nil {
		t.Fatal(err)
	}
	defer r.Delete(ctx, f.ID)

	if n, _ := r.CountPending(ctx); n != before+1 {
		t.Errorf("expected %d pending, got %d", before+1, n)
	}

	if err := r.AttachRemote(ctx, f.ID, 42, "bucket/42"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if n, _ := r.CountPending(ctx); n != before {
		t.Errorf("expected %d pending after attach, got %d", before, n)
	}

	got, err := r.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RemoteID != 42 || got.Location != "bucket/42" {
		t.Errorf("remote not attached: %+v", got)
	}

	if err := r.AttachRemote(ctx, -1, 1, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing record, got %v", err)
	}
}
