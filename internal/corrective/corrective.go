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
// Package corrective compensates for Knex defaults that diverge from the
// MySQL source schema. Every correction is a raw SQL statement applied after
// the table has been created.
package corrective

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/knexdump/internal/ddl"
	"github.com/ocomsoft/knexdump/internal/mapper"
	"github.com/ocomsoft/knexdump/internal/types"
)

// knexIncrementsWidth is the display width of the int unsigned column
// Knex creates for table.increments()
const knexIncrementsWidth = 10

// Corrections holds the statements appended after a table's create call, in
// the order they must be applied.
type Corrections struct {
	Generated     []string
	PrimaryKey    []string
	Indexes       []types.IndexDescriptor
	Chars         []string
	Binaries      []string
	AutoIncrement []string
	Warnings      []types.Warning
}

// Empty reports whether nothing needs to be appended
func (c Corrections) Empty() bool {
	return len(c.Generated) == 0 && len(c.PrimaryKey) == 0 && len(c.Indexes) == 0 && len(c.Chars) == 0 &&
		len(c.Binaries) == 0 && len(c.AutoIncrement) == 0
}

// Plan computes every correction for the table
func Plan(table types.TableSnapshot, pk *PrimaryKey) Corrections {
	generated, warnings := GeneratedColumns(table)
	primaryKey, pkWarnings := PrimaryKeyColumns(table, pk)
	return Corrections{
		Generated:     generated,
		PrimaryKey:    primaryKey,
		Indexes:       ddl.ExtractIndexes(table.CreateStatement),
		Chars:         CharColumns(table),
		Binaries:      BinaryColumns(table),
		AutoIncrement: AutoIncrement(table, pk),
		Warnings:      append(warnings, pkWarnings...),
	}
}

// PrimaryKeyColumns adds a key that includes generated columns once they
// exist. A key naming a column that is never created is reported and left
// out, unless an auto-increment column needs it (see AutoIncrement).
func PrimaryKeyColumns(table types.TableSnapshot, pk *PrimaryKey) ([]string, []types.Warning) {
	if !pk.Complete() {
		return nil, []types.Warning{{
			Kind:   types.WarningPrimaryKeySkipped,
			Table:  table.Name,
			Column: strings.Join(pk.Unmapped(), ","),
			Detail: fmt.Sprintf("primary key (%s) names columns without a Knex mapping", strings.Join(pk.Columns(), ", ")),
		}}
	}
	if !pk.Deferred() {
		return nil, nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", QuoteIdent(table.Name), quoteIdents(pk.Columns()))}, nil
}

// GeneratedColumns re-adds generated columns, which Knex cannot declare,
// with their original type and expression.
func GeneratedColumns(table types.TableSnapshot) ([]string, []types.Warning) {
	var (
		statements []string
		warnings   []types.Warning
	)

	for _, col := range table.Columns {
		if !col.Extra.IsGenerated() {
			continue
		}

		gen, ok := ddl.ExtractGeneratedColumn(table.CreateStatement, col.Name)
		if !ok {
			warnings = append(warnings, types.Warning{
				Kind:   types.WarningGeneratedColumnMissing,
				Table:  table.Name,
				Column: col.Name,
				Detail: fmt.Sprintf("%s column has no GENERATED clause in CREATE TABLE text", col.Extra),
			})
			continue
		}

		statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s GENERATED %s",
			QuoteIdent(table.Name), QuoteIdent(col.Name), gen.Type, gen.Expression))
	}

	return statements, warnings
}

// CharColumns restores the exact width and character set of char columns,
// which Knex declares as plain strings.
func CharColumns(table types.TableSnapshot) []string {
	var statements []string
	for _, col := range table.Columns {
		if !strings.EqualFold(col.DataType, "char") || col.Extra.IsGenerated() {
			continue
		}

		var sb strings.Builder
		sb.WriteString(modifyColumn(table.Name, col.Name))
		sb.WriteString(sized("char", col.CharMaxLength, ""))
		if col.CharacterSet != "" {
			sb.WriteString(" CHARACTER SET " + col.CharacterSet)
		}
		sb.WriteString(nullability(col, quoteLiteral))
		statements = append(statements, sb.String())
	}
	return statements
}

// BinaryColumns restores the exact width of fixed binary columns
func BinaryColumns(table types.TableSnapshot) []string {
	var statements []string
	for _, col := range table.Columns {
		if !strings.EqualFold(col.DataType, "binary") || col.Extra.IsGenerated() {
			continue
		}

		statement := modifyColumn(table.Name, col.Name) +
			sized("binary", col.CharMaxLength, "1") +
			nullability(col, func(v string) string { return v })
		statements = append(statements, statement)
	}
	return statements
}

// AutoIncrement restores auto-increment columns Knex would create with the
// wrong width, signedness or key. table.increments() always yields an
// "int(10) unsigned" primary key.
func AutoIncrement(table types.TableSnapshot, pk *PrimaryKey) []string {
	var statements []string

	for _, col := range table.Columns {
		if col.Extra != types.ExtraAutoIncrement {
			continue
		}

		unsigned := mapper.IsUnsigned(col)
		width, hasWidth := mapper.DisplayWidth(col)
		dataType := strings.ToLower(col.DataType)
		sole := pk.IsSole(col.Name)

		if sole && unsigned && (dataType == "int" || dataType == "integer") && (!hasWidth || width == knexIncrementsWidth) {
			continue
		}

		var sb strings.Builder
		sb.WriteString(modifyColumn(table.Name, col.Name))
		sb.WriteString(dataType)
		if hasWidth {
			sb.WriteString(fmt.Sprintf("(%d)", width))
		}
		if unsigned {
			sb.WriteString(" unsigned")
		}
		sb.WriteString(" NOT NULL AUTO_INCREMENT")
		statements = append(statements, sb.String())

		if !sole {
			statements = append(statements, rebuildPrimaryKey(table.Name, pk.Present()))
		}
	}

	return statements
}

func rebuildPrimaryKey(tableName string, columns []string) string {
	statement := fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", QuoteIdent(tableName))
	if len(columns) == 0 {
		return statement
	}
	return statement + ", ADD PRIMARY KEY (" + quoteIdents(columns) + ")"
}

func quoteIdents(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func modifyColumn(tableName, column string) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s ", QuoteIdent(tableName), QuoteIdent(column))
}

func sized(typeName string, length *int64, fallback string) string {
	switch {
	case length != nil:
		return fmt.Sprintf("%s(%d)", typeName, *length)
	case fallback != "":
		return fmt.Sprintf("%s(%s)", typeName, fallback)
	default:
		return typeName
	}
}

func nullability(col types.ColumnMetadata, literal func(string) string) string {
	switch {
	case col.Nullable && col.HasDefault():
		return " NULL DEFAULT " + literal(col.DefaultValue())
	case col.Nullable:
		return " DEFAULT NULL"
	case col.HasDefault():
		return " NOT NULL DEFAULT " + literal(col.DefaultValue())
	default:
		return " NOT NULL"
	}
}

// QuoteIdent quotes a MySQL identifier with backticks
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
