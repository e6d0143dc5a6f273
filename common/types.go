// common/types.go - Shared types used across packages
package common

import "time"

// Image is a captured, read-only snapshot of a database's data files.
// Rows are produced by the image-capture pipeline; dbclone only reads them
// (and offers a registration endpoint standing in for that pipeline).
type Image struct {
	ID           int64     `json:"id"`
	Location     string    `json:"location"` // path to the read-only parent disk image
	DatabaseName string    `json:"database_name"`
	SizeMB       int64     `json:"size_mb"`
	SourceAt     time.Time `json:"source_at"`  // when the source data was captured
	CreatedAt    time.Time `json:"created_at"` // when the image row was written
}

// Host is a machine that owns clones. Created lazily, at most once per name.
type Host struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	FQDN      string `json:"fqdn"`
}

// Clone is a live, writable database derived from an Image. A row exists
// iff its differencing disk was created, mounted and attached; the row is
// written only at the end of a successful pipeline run.
type Clone struct {
	ID           int64     `json:"id"`
	ImageID      int64     `json:"image_id"`
	HostID       int64     `json:"host_id"`
	Location     string    `json:"location"`    // differencing disk file
	AccessPath   string    `json:"access_path"` // mount directory
	SQLInstance  string    `json:"sql_instance"`
	DatabaseName string    `json:"database_name"`
	IsEnabled    bool      `json:"is_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// CloneResult is the public success output of one pipeline pairing.
type CloneResult struct {
	ImageID       int64  `json:"imageId"`
	HostID        int64  `json:"hostId"`
	CloneLocation string `json:"cloneLocation"`
	AccessPath    string `json:"accessPath"`
	InstanceID    string `json:"instanceId"`
	DatabaseName  string `json:"databaseName"`
	IsEnabled     bool   `json:"isEnabled"`
}
