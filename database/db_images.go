// database/db_images.go - image rows (read side of the capture pipeline)
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"dbclone/common"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// LatestImageForDatabase returns the most recently created image for the
// given database name.
func LatestImageForDatabase(ctx context.Context, databaseName string) (common.Image, error) {
	var img common.Image
	err := common.DB.QueryRow(ctx, `
		SELECT id, location, database_name, size_mb, source_at, created_at
		FROM images
		WHERE database_name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, databaseName).Scan(&img.ID, &img.Location, &img.DatabaseName, &img.SizeMB, &img.SourceAt, &img.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.Image{}, ErrNotFound
	}
	return img, err
}

// ImageIDByLocation resolves an image id from its storage location. Used at
// persistence time so a vanished image fails the pairing late instead of
// holding a lock across the whole pipeline.
func ImageIDByLocation(ctx context.Context, location string) (int64, error) {
	var id int64
	err := common.DB.QueryRow(ctx, `SELECT id FROM images WHERE location = $1`, location).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// RegisterImage inserts an image row and returns its id.
func RegisterImage(ctx context.Context, img common.Image) (int64, error) {
	var id int64
	err := common.DB.QueryRow(ctx, `
		INSERT INTO images (location, database_name, size_mb, source_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, img.Location, img.DatabaseName, img.SizeMB, img.SourceAt).Scan(&id)
	return id, err
}

// ListImages returns all images, newest first.
func ListImages(ctx context.Context) ([]common.Image, error) {
	rows, err := common.DB.Query(ctx, `
		SELECT id, location, database_name, size_mb, source_at, created_at
		FROM images
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Image
	for rows.Next() {
		var img common.Image
		if err := rows.Scan(&img.ID, &img.Location, &img.DatabaseName, &img.SizeMB, &img.SourceAt, &img.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}
