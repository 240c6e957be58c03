package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shaiso/Cloudbox/internal/domain"
)

// FileRepo — репозиторий метаданных файлов.
type FileRepo struct {
	db DB
}

// NewFileRepo создаёт новый FileRepo.
func NewFileRepo(db DB) *FileRepo {
	return &FileRepo{db: db}
}

const fileColumns = `id, name, size, mime_type, remote_id, location, folder_id, created_at`

// scanner — общий интерфейс pgx.Row и pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (domain.File, error) {
	var f domain.File
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Size,
		&f.MimeType,
		&f.RemoteID,
		&f.Location,
		&f.FolderID,
		&f.CreatedAt,
	)
	return f, err
}

func collectFiles(rows pgx.Rows) ([]domain.File, error) {
	defer rows.Close()

	files := []domain.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Create создаёт запись. ID и CreatedAt заполняются из БД.
func (r *FileRepo) Create(ctx context.Context, f *domain.File) error {
	query := `
		INSERT INTO files (name, size, mime_type, remote_id, location, folder_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		f.Name,
		f.Size,
		f.MimeType,
		f.RemoteID,
		f.Location,
		f.FolderID,
	).Scan(&f.ID, &f.CreatedAt)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("folder %d: %w", *f.FolderID, ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// GetByID возвращает файл по ID.
func (r *FileRepo) GetByID(ctx context.Context, id int64) (*domain.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id: %w", err)
	}
	return &f, nil
}

// ListByFolder возвращает файлы папки; nil — файлы в корне.
func (r *FileRepo) ListByFolder(ctx context.Context, folderID *int64) ([]domain.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE folder_id IS NOT DISTINCT FROM $1
		ORDER BY name, id
	`
	rows, err := r.db.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return collectFiles(rows)
}

// ListByIDs возвращает файлы с указанными ID. Отсутствующие пропускаются.
func (r *FileRepo) ListByIDs(ctx context.Context, ids []int64) ([]domain.File, error) {
	if len(ids) == 0 {
		return []domain.File{}, nil
	}

	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ANY($1) ORDER BY id`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list files by ids: %w", err)
	}
	return collectFiles(rows)
}

// AttachRemote записывает, куда загружен файл.
// Вызывается воркером хранилища после успешной отправки.
func (r *FileRepo) AttachRemote(ctx context.Context, id, remoteID int64, location string) error {
	query := `UPDATE files SET remote_id = $2, location = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, remoteID, location)
	if err != nil {
		return fmt.Errorf("attach remote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет запись.
func (r *FileRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany удаляет записи и возвращает количество удалённых.
func (r *FileRepo) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete files: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountPending возвращает количество файлов, ещё не загруженных в хранилище.
func (r *FileRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM files WHERE remote_id = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending files: %w", err)
	}
	return n, nil
}
