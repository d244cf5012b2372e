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
// Package mapper turns introspected MySQL column metadata into Knex
// schema-builder column statements.
package mapper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ocomsoft/knexdump/internal/types"
)

var (
	sizePrefixPattern = regexp.MustCompile(`^\s*\w+\s*(\([^)]*\))?`)
	widthPattern      = regexp.MustCompile(`\(\s*(\d+)\s*\)`)
	enumPattern       = regexp.MustCompile(`(?is)^\s*enum\s*\((.*)\)`)
	timestampPattern  = regexp.MustCompile(`(?i)^current_timestamp(\(\s*\d*\s*\))?$`)
)

var unsignableTypes = map[string]bool{
	"tinyint":   true,
	"smallint":  true,
	"mediumint": true,
	"int":       true,
	"integer":   true,
	"bigint":    true,
	"real":      true,
	"double":    true,
	"float":     true,
	"decimal":   true,
	"numeric":   true,
}

// Declaration is the Knex statement for one column, without indentation
// and without the trailing semicolon.
type Declaration struct {
	Column    string
	Statement string
}

// MapColumn maps the column to a Knex column statement.
// It reports false when the column gets no statement: generated columns
// (re-added with a raw statement) and data types outside the mapping table.
func MapColumn(col types.ColumnMetadata) (Declaration, bool) {
	if col.Extra.IsGenerated() {
		return Declaration{}, false
	}

	if col.Extra == types.ExtraAutoIncrement {
		return Declaration{
			Column:    col.Name,
			Statement: call("table.increments", Quote(col.Name)),
		}, true
	}

	base, ok := baseDeclaration(col)
	if !ok {
		return Declaration{}, false
	}

	return Declaration{
		Column:    col.Name,
		Statement: base + modifiers(col),
	}, true
}

// IsMapped reports whether the data type has a Knex mapping
func IsMapped(dataType string) bool {
	_, ok := baseDeclaration(types.ColumnMetadata{DataType: dataType})
	return ok
}

func baseDeclaration(col types.ColumnMetadata) (string, bool) {
	name := Quote(col.Name)

	switch strings.ToLower(col.DataType) {
	case "varchar", "char":
		return call("table.string", name, optInt(col.CharMaxLength)), true
	case "bigint":
		return call("table.bigint", name), true
	case "int", "smallint":
		// Knex has no smallint, it is declared as integer
		return call("table.integer", name, optWidth(col)), true
	case "tinyint":
		return call("table.tinyint", name, optWidth(col)), true
	case "longtext":
		return call("table.text", name, Quote("longtext")), true
	case "mediumtext":
		return call("table.text", name, Quote("mediumtext")), true
	case "text":
		return call("table.text", name), true
	case "datetime":
		return call("table.datetime", name), true
	case "date":
		return call("table.date", name), true
	case "time":
		return call("table.time", name), true
	case "timestamp":
		return call("table.timestamp", name), true
	case "decimal":
		return call("table.decimal", name, optInt(col.NumericPrecision), optInt(col.NumericScale)), true
	case "double":
		return call("table.double", name, optInt(col.NumericPrecision), optInt(col.NumericScale)), true
	case "float":
		return call("table.float", name, optInt(col.NumericPrecision), optInt(col.NumericScale)), true
	case "json":
		return call("table.json", name), true
	case "enum":
		return call("table.enu", name, "["+enumValues(col.ColumnType)+"]"), true
	case "blob":
		// binary without a length is created as blob by Knex
		return call("table.binary", name), true
	case "binary":
		length := "1"
		if col.CharMaxLength != nil {
			length = strconv.FormatInt(*col.CharMaxLength, 10)
		}
		return call("table.binary", name, length), true
	default:
		return "", false
	}
}

func modifiers(col types.ColumnMetadata) string {
	var sb strings.Builder

	if IsUnsigned(col) {
		sb.WriteString(".unsigned()")
	}

	if col.Default != nil {
		if IsCurrentTimestamp(*col.Default) {
			sb.WriteString(".defaultTo(knex.fn.now())")
		} else {
			sb.WriteString(".defaultTo(" + Quote(*col.Default) + ")")
		}
	}

	if col.Nullable {
		sb.WriteString(".nullable()")
	} else {
		sb.WriteString(".notNullable()")
	}

	return sb.String()
}

// IsUnsigned reports whether a numeric column carries the unsigned qualifier.
// The type(size) prefix is removed before scanning so size arguments never
// produce a false positive.
func IsUnsigned(col types.ColumnMetadata) bool {
	if !unsignableTypes[strings.ToLower(col.DataType)] {
		return false
	}

	rest := sizePrefixPattern.ReplaceAllString(strings.ToLower(col.ColumnType), "")
	for _, token := range strings.Fields(rest) {
		if token == "unsigned" {
			return true
		}
	}
	return false
}

// DisplayWidth returns the integer display width of the column type, e.g. 11
// for "int(11)". It reports false for types declared without a width.
func DisplayWidth(col types.ColumnMetadata) (int, bool) {
	m := widthPattern.FindStringSubmatch(col.ColumnType)
	if m == nil {
		return 0, false
	}
	width, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return width, true
}

// IsCurrentTimestamp reports whether a default value is the current timestamp sentinel
func IsCurrentTimestamp(value string) bool {
	return timestampPattern.MatchString(strings.TrimSpace(value))
}

// Quote renders s as a single-quoted JavaScript string literal
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + s + "'"
}

// QuoteList renders a column list: 'a' for a single column, ['a', 'b'] otherwise
func QuoteList(columns []string) string {
	if len(columns) == 1 {
		return Quote(columns[0])
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Quote(c)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func optWidth(col types.ColumnMetadata) string {
	width, ok := DisplayWidth(col)
	if !ok {
		return ""
	}
	return strconv.Itoa(width)
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// call renders fn(args...). Arguments after the first empty one are dropped
// so an undefined precision never leaves a dangling comma.
func call(fn string, args ...string) string {
	var present []string
	for _, a := range args {
		if a == "" {
			break
		}
		present = append(present, a)
	}
	return fmt.Sprintf("%s(%s)", fn, strings.Join(present, ", "))
}

// enumValues returns the literal list of an enum display type, re-quoted
// for JavaScript: enum('a','b') becomes 'a', 'b'.
func enumValues(columnType string) string {
	m := enumPattern.FindStringSubmatch(columnType)
	if m == nil {
		return ""
	}

	var values []string
	for _, v := range splitEnumLiterals(m[1]) {
		values = append(values, Quote(v))
	}
	return strings.Join(values, ", ")
}

// splitEnumLiterals splits 'a','b''c' into its unescaped literal values
func splitEnumLiterals(list string) []string {
	var (
		values  []string
		current strings.Builder
		inQuote bool
	)

	for i := 0; i < len(list); i++ {
		ch := list[i]
		switch {
		case !inQuote && ch == '\'':
			inQuote = true
			current.Reset()
		case inQuote && ch == '\'' && i+1 < len(list) && list[i+1] == '\'':
			current.WriteByte('\'')
			i++
		case inQuote && ch == '\\' && i+1 < len(list):
			current.WriteByte(list[i+1])
			i++
		case inQuote && ch == '\'':
			inQuote = false
			values = append(values, current.String())
		case inQuote:
			current.WriteByte(ch)
		}
	}
	return values
}
