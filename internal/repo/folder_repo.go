package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Cloudbox/internal/domain"
)

// FolderRepo — репозиторий папок.
type FolderRepo struct {
	pool *pgxpool.Pool
}

// NewFolderRepo создаёт новый FolderRepo.
func NewFolderRepo(pool *pgxpool.Pool) *FolderRepo {
	return &FolderRepo{pool: pool}
}

func scanFolder(row scanner) (domain.Folder, error) {
	var f domain.Folder
	err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.CreatedAt)
	return f, err
}

// Create создаёт папку. ParentID должен ссылаться на существующую папку.
func (r *FolderRepo) Create(ctx context.Context, f *domain.Folder) error {
	query := `
		INSERT INTO folders (name, parent_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, f.Name, f.ParentID).Scan(&f.ID, &f.CreatedAt)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("parent folder %d: %w", *f.ParentID, ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// GetByID возвращает папку по ID.
func (r *FolderRepo) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	query := `SELECT id, name, parent_id, created_at FROM folders WHERE id = $1`

	f, err := scanFolder(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get folder by id: %w", err)
	}
	return &f, nil
}

// ListChildren возвращает вложенные папки; nil — папки верхнего уровня.
func (r *FolderRepo) ListChildren(ctx context.Context, parentID *int64) ([]domain.Folder, error) {
	query := `
		SELECT id, name, parent_id, created_at
		FROM folders
		WHERE parent_id IS NOT DISTINCT FROM $1
		ORDER BY name, id
	`
	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []domain.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// Breadcrumbs возвращает путь от корня до папки id включительно.
func (r *FolderRepo) Breadcrumbs(ctx context.Context, id int64) ([]domain.Folder, error) {
	query := `
		WITH RECURSIVE path AS (
			SELECT id, name, parent_id, created_at, 0 AS depth
			FROM folders
			WHERE id = $1
			UNION ALL
			SELECT f.id, f.name, f.parent_id, f.created_at, p.depth + 1
			FROM folders f
			JOIN path p ON f.id = p.parent_id
		)
		SELECT id, name, parent_id, created_at
		FROM path
		ORDER BY depth DESC
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("breadcrumbs: %w", err)
	}
	defer rows.Close()

	crumbs := []domain.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan breadcrumb: %w", err)
		}
		crumbs = append(crumbs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(crumbs) == 0 {
		return nil, ErrNotFound
	}
	return crumbs, nil
}
