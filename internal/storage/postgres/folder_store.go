package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/pkg/types"
)

// Ensure *FolderStore implements storage.FolderStore at compile time.
var _ storage.FolderStore = (*FolderStore)(nil)

// FolderStore implements storage.FolderStore on PostgreSQL. It shares the
// database connection of the NoteStore that created it.
type FolderStore struct {
	db *sql.DB
}

// NewFolderStore creates a folder store on an existing connection
// (typically NoteStore.GetDB()).
func NewFolderStore(db *sql.DB) *FolderStore {
	return &FolderStore{db: db}
}

// Store creates or updates a folder (upsert semantics).
func (s *FolderStore) Store(ctx context.Context, folder *types.Folder) error {
	if folder == nil || folder.ID == "" {
		return fmt.Errorf("%w: folder ID is required", storage.ErrInvalidInput)
	}
	if folder.WorkspaceID == "" {
		return fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	if folder.UpdatedAt.IsZero() {
		folder.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (id, workspace_id, parent_id, name, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			parent_id = excluded.parent_id,
			name = excluded.name,
			position = excluded.position,
			updated_at = excluded.updated_at
	`, folder.ID, folder.WorkspaceID, nullString(folder.ParentID), folder.Name,
		folder.Position, folder.CreatedAt, folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to store folder %s: %w", folder.ID, err)
	}

	return nil
}

// Get retrieves a folder by ID.
func (s *FolderStore) Get(ctx context.Context, id string) (*types.Folder, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: folder ID is required", storage.ErrInvalidInput)
	}

	var folder types.Folder
	var parentID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, parent_id, name, position, created_at, updated_at
		FROM folders WHERE id = $1
	`, id).Scan(&folder.ID, &folder.WorkspaceID, &parentID, &folder.Name,
		&folder.Position, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get folder %s: %w", id, err)
	}

	if parentID.Valid {
		folder.ParentID = parentID.String
	}

	return &folder, nil
}

// ListByWorkspace returns all folders in a workspace ordered by position.
func (s *FolderStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]types.Folder, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace ID is required", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, parent_id, name, position, created_at, updated_at
		FROM folders
		WHERE workspace_id = $1
		ORDER BY position ASC, name ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var folders []types.Folder
	for rows.Next() {
		var folder types.Folder
		var parentID sql.NullString
		if err := rows.Scan(&folder.ID, &folder.WorkspaceID, &parentID, &folder.Name,
			&folder.Position, &folder.CreatedAt, &folder.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan folder: %w", err)
		}
		if parentID.Valid {
			folder.ParentID = parentID.String
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	return folders, nil
}

// Delete removes a folder.
func (s *FolderStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: folder ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete folder %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}
