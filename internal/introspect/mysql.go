/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
// Package introspect reads table and view definitions from a live MySQL or
// MariaDB database.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/ocomsoft/knexdump/internal/corrective"
	"github.com/ocomsoft/knexdump/internal/errors"
	"github.com/ocomsoft/knexdump/internal/types"
	"github.com/ocomsoft/knexdump/internal/version"
)

const columnsQuery = `
	SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT,
	       NUMERIC_PRECISION, NUMERIC_SCALE, CHARACTER_MAXIMUM_LENGTH,
	       CHARACTER_SET_NAME, EXTRA, COLUMN_KEY
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION
`

// Options describes how to reach the source database
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   map[string]string
}

// Filter restricts the listed entities to a single table or view
type Filter struct {
	Table string
	View  string
}

// BuildDSN renders the connection options as a go-sql-driver DSN
func BuildDSN(opts Options) string {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	cfg.DBName = opts.Database
	cfg.ConnectionAttributes = version.ConnectionAttributes()
	if len(opts.Params) > 0 {
		cfg.Params = make(map[string]string, len(opts.Params))
		for k, v := range opts.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}

// MySQLSource reads schema metadata through database/sql
type MySQLSource struct {
	db     *sql.DB
	schema string
	filter Filter

	// MariaDB quotes string defaults and reports an explicit NULL default as text
	mariadb bool
}

// Open connects to the database named in dsn and verifies the connection
func Open(ctx context.Context, dsn string, filter Filter) (*MySQLSource, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid mysql dsn: %v", err))
	}
	if cfg.DBName == "" {
		return nil, errors.NewConfigError("", "database.name")
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.NewIntrospectionError("", "connect", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewIntrospectionError("", "ping", err)
	}

	var serverVersion string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&serverVersion); err != nil {
		db.Close()
		return nil, errors.NewIntrospectionError("", "read server version", err)
	}

	source := New(db, cfg.DBName, filter)
	source.mariadb = IsMariaDB(serverVersion)
	return source, nil
}

// IsMariaDB reports whether a VERSION() string belongs to a MariaDB server
func IsMariaDB(serverVersion string) bool {
	return strings.Contains(strings.ToLower(serverVersion), "mariadb")
}

// New wraps an open connection pool. schema is the database the entities are read from.
func New(db *sql.DB, schema string, filter Filter) *MySQLSource {
	return &MySQLSource{db: db, schema: schema, filter: filter}
}

// Schema returns the database name entities are read from
func (s *MySQLSource) Schema() string {
	return s.schema
}

// ListTables returns the base tables of the schema, sorted by name
func (s *MySQLSource) ListTables(ctx context.Context) ([]string, error) {
	return s.listEntities(ctx, false, s.filter.Table)
}

// ListViews returns the views of the schema, sorted by name
func (s *MySQLSource) ListViews(ctx context.Context) ([]string, error) {
	return s.listEntities(ctx, true, s.filter.View)
}

func (s *MySQLSource) listEntities(ctx context.Context, views bool, only string) ([]string, error) {
	operation := "list tables"
	if views {
		operation = "list views"
	}

	rows, err := s.db.QueryContext(ctx, "SHOW FULL TABLES FROM "+corrective.QuoteIdent(s.schema))
	if err != nil {
		return nil, errors.NewIntrospectionError("", operation, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, errors.NewIntrospectionError("", operation, err)
		}
		if isView(tableType) != views {
			continue
		}
		if only != "" && name != only {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIntrospectionError("", operation, err)
	}

	sort.Strings(names)
	return names, nil
}

func isView(tableType string) bool {
	return strings.EqualFold(strings.TrimSpace(tableType), "VIEW")
}

// Columns returns the column metadata of a table in ordinal order
func (s *MySQLSource) Columns(ctx context.Context, table string) ([]types.ColumnMetadata, error) {
	rows, err := s.db.QueryContext(ctx, columnsQuery, s.schema, table)
	if err != nil {
		return nil, errors.NewIntrospectionError(table, "read columns", err)
	}
	defer rows.Close()

	var columns []types.ColumnMetadata
	for rows.Next() {
		var r columnRow
		if err := rows.Scan(&r.name, &r.dataType, &r.columnType, &r.isNullable, &r.columnDefault,
			&r.numericPrecision, &r.numericScale, &r.charMaxLength, &r.characterSet, &r.extra, &r.columnKey); err != nil {
			return nil, errors.NewIntrospectionError(table, "read columns", err)
		}
		col := r.metadata()
		if s.mariadb {
			col.Default = mariaDBDefault(col.Default)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIntrospectionError(table, "read columns", err)
	}

	return columns, nil
}

// ShowCreateTable returns the SHOW CREATE TABLE text of a table
func (s *MySQLSource) ShowCreateTable(ctx context.Context, table string) (string, error) {
	var name, statement string
	err := s.db.QueryRowContext(ctx, "SHOW CREATE TABLE "+s.qualified(table)).Scan(&name, &statement)
	if err != nil {
		return "", errors.NewIntrospectionError(table, "show create table", err)
	}
	return statement, nil
}

// ShowCreateView returns the SHOW CREATE VIEW text of a view
func (s *MySQLSource) ShowCreateView(ctx context.Context, view string) (string, error) {
	var name, statement, charset, collation string
	err := s.db.QueryRowContext(ctx, "SHOW CREATE VIEW "+s.qualified(view)).Scan(&name, &statement, &charset, &collation)
	if err != nil {
		return "", errors.NewIntrospectionError(view, "show create view", err)
	}
	return statement, nil
}

// TableSnapshot reads everything the generator needs to know about a table
func (s *MySQLSource) TableSnapshot(ctx context.Context, table string) (types.TableSnapshot, error) {
	columns, err := s.Columns(ctx, table)
	if err != nil {
		return types.TableSnapshot{}, err
	}

	statement, err := s.ShowCreateTable(ctx, table)
	if err != nil {
		return types.TableSnapshot{}, err
	}

	return types.TableSnapshot{
		Name:            table,
		Columns:         columns,
		CreateStatement: statement,
	}, nil
}

// ViewSnapshot reads the definition of a view
func (s *MySQLSource) ViewSnapshot(ctx context.Context, view string) (types.ViewSnapshot, error) {
	statement, err := s.ShowCreateView(ctx, view)
	if err != nil {
		return types.ViewSnapshot{}, err
	}

	return types.ViewSnapshot{
		Name:            view,
		Schema:          s.schema,
		CreateStatement: statement,
	}, nil
}

// Close releases the connection pool
func (s *MySQLSource) Close() error {
	return s.db.Close()
}

func (s *MySQLSource) qualified(name string) string {
	return corrective.QuoteIdent(s.schema) + "." + corrective.QuoteIdent(name)
}

// columnRow holds one scanned information_schema.COLUMNS row
type columnRow struct {
	name             string
	dataType         string
	columnType       string
	isNullable       string
	columnDefault    sql.NullString
	numericPrecision sql.NullInt64
	numericScale     sql.NullInt64
	charMaxLength    sql.NullInt64
	characterSet     sql.NullString
	extra            string
	columnKey        string
}

func (r columnRow) metadata() types.ColumnMetadata {
	col := types.ColumnMetadata{
		Name:             r.name,
		DataType:         strings.ToLower(r.dataType),
		ColumnType:       r.columnType,
		Nullable:         strings.EqualFold(r.isNullable, "YES"),
		NumericPrecision: nullInt(r.numericPrecision),
		NumericScale:     nullInt(r.numericScale),
		CharMaxLength:    nullInt(r.charMaxLength),
		CharacterSet:     r.characterSet.String,
		Extra:            types.ParseExtra(r.extra),
		RawExtra:         r.extra,
		Key:              types.ParseKey(r.columnKey),
	}
	if r.columnDefault.Valid {
		value := r.columnDefault.String
		col.Default = &value
	}
	return col
}

// mariaDBDefault converts a MariaDB COLUMN_DEFAULT to the form MySQL reports:
// 'abc' becomes abc and the literal NULL becomes no default. Numbers and
// expressions such as current_timestamp() are already unquoted.
func mariaDBDefault(value *string) *string {
	if value == nil || *value == "NULL" {
		return nil
	}

	v := *value
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}
	return &v
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
