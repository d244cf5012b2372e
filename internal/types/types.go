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
package types

import "strings"

// ExtraKind classifies the EXTRA column of information_schema.COLUMNS
type ExtraKind int

const (
	ExtraNone ExtraKind = iota
	ExtraAutoIncrement
	ExtraVirtualGenerated
	ExtraStoredGenerated
)

// ParseExtra maps a raw EXTRA value to an ExtraKind. MariaDB's PERSISTENT
// GENERATED is its name for STORED GENERATED.
// Values such as DEFAULT_GENERATED or "on update CURRENT_TIMESTAMP" carry no
// storage semantics the generator acts on and map to ExtraNone.
func ParseExtra(raw string) ExtraKind {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case lower == "auto_increment":
		return ExtraAutoIncrement
	case strings.Contains(lower, "virtual generated"):
		return ExtraVirtualGenerated
	case strings.Contains(lower, "stored generated"), strings.Contains(lower, "persistent generated"):
		return ExtraStoredGenerated
	default:
		return ExtraNone
	}
}

// IsGenerated reports whether the kind is a generated column
func (e ExtraKind) IsGenerated() bool {
	return e == ExtraVirtualGenerated || e == ExtraStoredGenerated
}

func (e ExtraKind) String() string {
	switch e {
	case ExtraAutoIncrement:
		return "auto_increment"
	case ExtraVirtualGenerated:
		return "VIRTUAL GENERATED"
	case ExtraStoredGenerated:
		return "STORED GENERATED"
	default:
		return ""
	}
}

// KeyKind classifies the COLUMN_KEY column of information_schema.COLUMNS
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyPrimary
	KeyUnique
	KeyMultiple
)

// ParseKey maps a raw COLUMN_KEY value (PRI, UNI, MUL) to a KeyKind
func ParseKey(raw string) KeyKind {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PRI":
		return KeyPrimary
	case "UNI":
		return KeyUnique
	case "MUL":
		return KeyMultiple
	default:
		return KeyNone
	}
}

// ColumnMetadata describes one column as returned by information_schema.
// Columns are kept in ORDINAL_POSITION order; generated scripts follow it.
type ColumnMetadata struct {
	Name             string
	DataType         string  // lower-case tag, e.g. "varchar", "int"
	ColumnType       string  // display type, e.g. "decimal(10,2) unsigned"
	Nullable         bool    // IS_NULLABLE = 'YES'
	Default          *string // nil when COLUMN_DEFAULT is NULL
	NumericPrecision *int64
	NumericScale     *int64
	CharMaxLength    *int64
	CharacterSet     string
	Extra            ExtraKind
	RawExtra         string
	Key              KeyKind
}

// IsPrimary reports whether the column is part of the primary key
func (c ColumnMetadata) IsPrimary() bool {
	return c.Key == KeyPrimary
}

// HasDefault reports whether COLUMN_DEFAULT is set
func (c ColumnMetadata) HasDefault() bool {
	return c.Default != nil
}

// DefaultValue returns the default value or the empty string
func (c ColumnMetadata) DefaultValue() string {
	if c.Default == nil {
		return ""
	}
	return *c.Default
}

// TableSnapshot is everything the generator needs to know about one table
type TableSnapshot struct {
	Name            string
	Columns         []ColumnMetadata
	CreateStatement string // output of SHOW CREATE TABLE
}

// ViewSnapshot holds the raw SHOW CREATE VIEW text of one view.
// Schema is the name of the database the view was read from; its
// qualification is stripped from the definition before use.
type ViewSnapshot struct {
	Name            string
	Schema          string
	CreateStatement string
}

// IndexDescriptor is a secondary index recovered from CREATE TABLE text
type IndexDescriptor struct {
	Type    string // UNIQUE, FULLTEXT, SPATIAL or empty
	Name    string
	Columns []string
}

// ForeignKeyDescriptor is a foreign key constraint recovered from CREATE TABLE text
type ForeignKeyDescriptor struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	Clause     string // trailing ON DELETE / ON UPDATE text, kept opaque
}

// ScriptKind identifies what a migration script creates
type ScriptKind string

const (
	ScriptTable       ScriptKind = "table"
	ScriptView        ScriptKind = "view"
	ScriptForeignKeys ScriptKind = "foreign_keys"
)

// MigrationScript is a generated Knex migration file body
type MigrationScript struct {
	EntityName string
	Kind       ScriptKind
	Up         string
	Down       string
}

// Content returns the complete file content
func (m MigrationScript) Content() string {
	return m.Up + "\n" + m.Down
}

// WarningKind classifies non-fatal generator warnings
type WarningKind string

const (
	WarningUnmappedType           WarningKind = "unmapped_type"
	WarningGeneratedColumnMissing WarningKind = "generated_column_missing"
	WarningPrimaryKeySkipped      WarningKind = "primary_key_skipped"
)

// Warning is a non-fatal condition found while compiling one entity
type Warning struct {
	Kind   WarningKind
	Table  string
	Column string
	Detail string
}
