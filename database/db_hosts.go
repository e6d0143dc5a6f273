// database/db_hosts.go - host rows
package database

import (
	"context"

	"dbclone/common"
)

// EnsureHost registers a host by name if it is not already known and returns
// its id. Implemented as a single upsert keyed on the unique name so that
// concurrent invocations cannot race a check-then-insert into duplicates.
// The no-op DO UPDATE exists only to make RETURNING yield the existing id;
// host rows are never mutated after creation.
func EnsureHost(ctx context.Context, name, ipAddress, fqdn string) (int64, error) {
	var id int64
	err := common.DB.QueryRow(ctx, `
		INSERT INTO hosts (name, ip_address, fqdn)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name, ipAddress, fqdn).Scan(&id)
	return id, err
}

// ListHosts returns all known hosts.
func ListHosts(ctx context.Context) ([]common.Host, error) {
	rows, err := common.DB.Query(ctx, `
		SELECT id, name, ip_address, fqdn FROM hosts ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Host
	for rows.Next() {
		var h common.Host
		if err := rows.Scan(&h.ID, &h.Name, &h.IPAddress, &h.FQDN); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
