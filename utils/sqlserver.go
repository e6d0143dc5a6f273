// utils/sqlserver.go - SQL Server attachment client.
package utils

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"dbclone/common"
)

// SQLServer wraps one connection to a target instance.
type SQLServer struct {
	Instance string // as addressed by clients, e.g. `db1.example.com\PROD`
	db       *sql.DB
}

// ConnectInstance opens and verifies a connection to a SQL Server instance.
// instance accepts `host`, `host\name` and `host,port` notation.
func ConnectInstance(ctx context.Context, instance, user, password string) (*SQLServer, error) {
	dsn := buildDSN(instance, user, password)
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", instance, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", instance, err)
	}
	return &SQLServer{Instance: instance, db: db}, nil
}

func buildDSN(instance, user, password string) string {
	host := instance
	var path string
	if i := strings.IndexByte(instance, '\\'); i >= 0 {
		host, path = instance[:i], instance[i+1:]
	}
	host = strings.ReplaceAll(host, ",", ":") // host,port -> host:port
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		Path:     path,
		RawQuery: url.Values{"database": {"master"}, "app name": {"dbclone"}}.Encode(),
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	return u.String()
}

// DatabaseExists checks live server state for a database name. Used as the
// pre-flight collision check before any disk work starts.
func (s *SQLServer) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sys.databases WHERE name = @name", sql.Named("name", name)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AttachDatabase attaches the given files as a new database. DDL cannot take
// bound parameters, so the identifier and file paths are escaped explicitly.
func (s *SQLServer) AttachDatabase(ctx context.Context, name string, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("attach %s: no files to attach", name)
	}
	stmt := BuildAttachSQL(name, files)
	common.DebugLog("sqlserver: %s: %s", s.Instance, stmt)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("attach %s on %s: %w", name, s.Instance, err)
	}
	return nil
}

// BuildAttachSQL renders the CREATE DATABASE ... FOR ATTACH statement.
func BuildAttachSQL(name string, files []string) string {
	var b strings.Builder
	b.WriteString("CREATE DATABASE ")
	b.WriteString(QuoteIdent(name))
	b.WriteString(" ON ")
	for i, f := range files {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(FILENAME = ")
		b.WriteString(QuoteString(f))
		b.WriteString(")")
	}
	b.WriteString(" FOR ATTACH")
	return b.String()
}

// QuoteIdent bracket-quotes a SQL Server identifier.
func QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteString single-quotes a SQL Server string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Close releases the underlying connection pool.
func (s *SQLServer) Close() error {
	return s.db.Close()
}
