// database/db_clones.go - clone rows
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"dbclone/common"
)

// InsertClone writes the clone record and returns its id. This is the commit
// point of the pipeline: until it succeeds the clone does not exist as far
// as the metadata store is concerned.
func InsertClone(ctx context.Context, c common.Clone) (int64, error) {
	var id int64
	err := common.DB.QueryRow(ctx, `
		INSERT INTO clones (image_id, host_id, location, access_path, sql_instance, database_name, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.ImageID, c.HostID, c.Location, c.AccessPath, c.SQLInstance, c.DatabaseName, c.IsEnabled).Scan(&id)
	return id, err
}

// ListClones returns all clone records, newest first.
func ListClones(ctx context.Context) ([]common.Clone, error) {
	rows, err := common.DB.Query(ctx, `
		SELECT id, image_id, host_id, location, access_path, sql_instance, database_name, is_enabled, created_at
		FROM clones
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Clone
	for rows.Next() {
		var c common.Clone
		if err := rows.Scan(&c.ID, &c.ImageID, &c.HostID, &c.Location, &c.AccessPath,
			&c.SQLInstance, &c.DatabaseName, &c.IsEnabled, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetCloneEnabled flips the enabled flag on a clone record.
func SetCloneEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := common.DB.Exec(ctx, `UPDATE clones SET is_enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CloneByID fetches a single clone record.
func CloneByID(ctx context.Context, id int64) (common.Clone, error) {
	var c common.Clone
	err := common.DB.QueryRow(ctx, `
		SELECT id, image_id, host_id, location, access_path, sql_instance, database_name, is_enabled, created_at
		FROM clones WHERE id = $1
	`, id).Scan(&c.ID, &c.ImageID, &c.HostID, &c.Location, &c.AccessPath,
		&c.SQLInstance, &c.DatabaseName, &c.IsEnabled, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.Clone{}, ErrNotFound
	}
	return c, err
}
