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
package introspect

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/ocomsoft/knexdump/internal/errors"
	"github.com/ocomsoft/knexdump/internal/types"
	"github.com/ocomsoft/knexdump/internal/version"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(Options{
		Host:     "db.internal",
		Port:     3307,
		User:     "app",
		Password: "s3cr:t@",
		Database: "shop",
		Params:   map[string]string{"charset": "utf8mb4", "sql_mode": "ANSI"},
	})

	// ParseDSN moves charset out of Params, so check the DSN text for it
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Errorf("Expected charset in DSN %q", dsn)
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("BuildDSN produced an unparsable DSN %q: %v", dsn, err)
	}

	if cfg.User != "app" || cfg.Passwd != "s3cr:t@" {
		t.Errorf("Unexpected credentials %s/%s", cfg.User, cfg.Passwd)
	}
	if cfg.Net != "tcp" || cfg.Addr != "db.internal:3307" {
		t.Errorf("Unexpected address %s(%s)", cfg.Net, cfg.Addr)
	}
	if cfg.DBName != "shop" {
		t.Errorf("Expected database shop, got %s", cfg.DBName)
	}
	if cfg.Params["sql_mode"] != "ANSI" {
		t.Errorf("Expected sql_mode param, got %v", cfg.Params)
	}
	if cfg.ConnectionAttributes != version.ConnectionAttributes() {
		t.Errorf("Unexpected connection attributes %q", cfg.ConnectionAttributes)
	}
}

func TestBuildDSN_IPv6(t *testing.T) {
	cfg, err := mysql.ParseDSN(BuildDSN(Options{Host: "::1", Port: 3306, User: "root", Database: "db"}))
	if err != nil {
		t.Fatalf("ParseDSN failed: %v", err)
	}
	if cfg.Addr != "[::1]:3306" {
		t.Errorf("Expected bracketed IPv6 address, got %s", cfg.Addr)
	}
}

func TestOpen_RequiresDatabase(t *testing.T) {
	_, err := Open(context.Background(), "root:pw@tcp(localhost:3306)/", Filter{})
	if !errors.IsConfigError(err) {
		t.Errorf("Expected config error, got %v", err)
	}
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "not a dsn", Filter{})
	if !errors.IsConfigError(err) {
		t.Errorf("Expected config error, got %v", err)
	}
}

func TestColumnRowMetadata(t *testing.T) {
	r := columnRow{
		name:             "price",
		dataType:         "DECIMAL",
		columnType:       "decimal(10,2) unsigned",
		isNullable:       "NO",
		columnDefault:    sql.NullString{String: "0.00", Valid: true},
		numericPrecision: sql.NullInt64{Int64: 10, Valid: true},
		numericScale:     sql.NullInt64{Int64: 2, Valid: true},
		extra:            "",
		columnKey:        "MUL",
	}

	col := r.metadata()

	if col.DataType != "decimal" {
		t.Errorf("Expected lower-case data type, got %s", col.DataType)
	}
	if col.Nullable {
		t.Error("Expected not nullable")
	}
	if col.Default == nil || *col.Default != "0.00" {
		t.Errorf("Unexpected default %v", col.Default)
	}
	if col.NumericPrecision == nil || *col.NumericPrecision != 10 || col.NumericScale == nil || *col.NumericScale != 2 {
		t.Error("Unexpected numeric precision or scale")
	}
	if col.CharMaxLength != nil {
		t.Error("Expected undefined character length")
	}
	if col.Key != types.KeyMultiple || col.Extra != types.ExtraNone {
		t.Errorf("Unexpected key %v or extra %v", col.Key, col.Extra)
	}
}

func TestColumnRowMetadata_Extra(t *testing.T) {
	tests := []struct {
		extra    string
		expected types.ExtraKind
	}{
		{"auto_increment", types.ExtraAutoIncrement},
		{"VIRTUAL GENERATED", types.ExtraVirtualGenerated},
		{"STORED GENERATED", types.ExtraStoredGenerated},
		{"PERSISTENT GENERATED", types.ExtraStoredGenerated},
		{"DEFAULT_GENERATED", types.ExtraNone},
		{"DEFAULT_GENERATED on update CURRENT_TIMESTAMP", types.ExtraNone},
	}

	for _, test := range tests {
		col := columnRow{name: "c", dataType: "int", isNullable: "YES", extra: test.extra}.metadata()
		if col.Extra != test.expected {
			t.Errorf("metadata(%s).Extra = %v; expected %v", test.extra, col.Extra, test.expected)
		}
		if col.RawExtra != test.extra {
			t.Errorf("Expected raw extra to be kept, got %s", col.RawExtra)
		}
		if col.Default != nil {
			t.Error("Expected no default for a NULL COLUMN_DEFAULT")
		}
	}
}

func TestIsView(t *testing.T) {
	if !isView("VIEW") || !isView("view") {
		t.Error("Expected VIEW to be recognised")
	}
	if isView("BASE TABLE") || isView("SYSTEM VIEW ") {
		t.Error("Only plain views should be recognised")
	}
}

func TestIsMariaDB(t *testing.T) {
	tests := []struct {
		version  string
		expected bool
	}{
		{"8.4.3", false},
		{"5.7.44-log", false},
		{"10.11.6-MariaDB-0+deb12u1", true},
		{"5.5.5-10.6.16-MariaDB", true},
	}

	for _, test := range tests {
		if result := IsMariaDB(test.version); result != test.expected {
			t.Errorf("IsMariaDB(%s) = %v; expected %v", test.version, result, test.expected)
		}
	}
}

func TestMariaDBDefault(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		input    *string
		expected *string
	}{
		{"no default", nil, nil},
		{"explicit null", str("NULL"), nil},
		{"string", str("'abc'"), str("abc")},
		{"quoted null text", str("'NULL'"), str("NULL")},
		{"escaped quote", str("'it''s'"), str("it's")},
		{"empty string", str("''"), str("")},
		{"number", str("0.00"), str("0.00")},
		{"expression", str("current_timestamp()"), str("current_timestamp()")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := mariaDBDefault(test.input)
			switch {
			case test.expected == nil && result != nil:
				t.Errorf("mariaDBDefault() = %q; expected no default", *result)
			case test.expected != nil && (result == nil || *result != *test.expected):
				t.Errorf("mariaDBDefault() = %v; expected %q", result, *test.expected)
			}
		})
	}
}
