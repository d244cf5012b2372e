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
// Package ddl recovers index, foreign key and generated column definitions
// from raw SHOW CREATE TABLE / SHOW CREATE VIEW text. It is pattern based
// and does not parse the full SQL grammar.
package ddl

import (
	"regexp"
	"strings"

	"github.com/ocomsoft/knexdump/internal/types"
)

const identifier = "`[^`]+`|[^\\s`(),]+"

var (
	indexPattern = regexp.MustCompile(`(?i)(?:\b(UNIQUE|FULLTEXT|SPATIAL)[ \t]+)?\b(?:KEY|INDEX)[ \t]+(` + identifier + `)[ \t]*\(((?:[^()]|\(\d+\))*)\)`)

	foreignKeyPattern = regexp.MustCompile(`(?i)CONSTRAINT\s+(` + identifier + `)\s+FOREIGN\s+KEY\s*\(([^)]*)\)\s*REFERENCES\s+((?:` + "`[^`]+`" + `\.)?(?:` + identifier + `))\s*\(([^)]*)\)([^,\n]*)`)

	viewHeaderPattern = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(?:ALGORITHM\s*=\s*\w+\s+)?(?:DEFINER\s*=\s*\S+\s+)?(?:SQL\s+SECURITY\s+\w+\s+)?VIEW\s+`)

	prefixLengthPattern = regexp.MustCompile(`\(\d+\)`)
	orderSuffixPattern  = regexp.MustCompile(`(?i)\s+(ASC|DESC)$`)
)

// GeneratedColumn is the declaration of a generated column found in CREATE TABLE text
type GeneratedColumn struct {
	Name       string
	Type       string // declared type, e.g. "varchar(255)"
	Expression string // everything after GENERATED, e.g. "ALWAYS AS (a + b) VIRTUAL"
}

// ExtractIndexes returns every named KEY / INDEX clause in order of appearance.
// PRIMARY KEY and FOREIGN KEY clauses carry no name and are never matched,
// nor is text inside string literals such as column comments.
func ExtractIndexes(createTable string) []types.IndexDescriptor {
	var indexes []types.IndexDescriptor
	for _, m := range indexPattern.FindAllStringSubmatch(maskLiterals(createTable), -1) {
		columns := splitColumns(m[3])
		if len(columns) == 0 {
			continue
		}
		indexes = append(indexes, types.IndexDescriptor{
			Type:    strings.ToUpper(unquote(m[1])),
			Name:    unquote(m[2]),
			Columns: columns,
		})
	}
	return indexes
}

// ExtractForeignKeys returns every CONSTRAINT ... FOREIGN KEY clause in order of appearance
func ExtractForeignKeys(createTable string) []types.ForeignKeyDescriptor {
	var fks []types.ForeignKeyDescriptor
	for _, m := range foreignKeyPattern.FindAllStringSubmatch(maskLiterals(createTable), -1) {
		fks = append(fks, types.ForeignKeyDescriptor{
			Name:       unquote(m[1]),
			Columns:    splitColumns(m[2]),
			RefTable:   unquote(m[3]),
			RefColumns: splitColumns(m[4]),
			Clause:     strings.TrimSpace(strings.ReplaceAll(m[5], "`", "")),
		})
	}
	return fks
}

// ExtractGeneratedColumn looks up the declaration of column in the CREATE TABLE
// text and returns it when the column is declared with a GENERATED clause.
func ExtractGeneratedColumn(createTable, column string) (GeneratedColumn, bool) {
	pattern, err := regexp.Compile(`(?im)^[ \t]*` + "`?" + regexp.QuoteMeta(column) + "`?" + `[ \t]+(.+?)[ \t]+GENERATED[ \t]+(.*?),?[ \t]*$`)
	if err != nil {
		return GeneratedColumn{}, false
	}

	m := pattern.FindStringSubmatch(createTable)
	if m == nil {
		return GeneratedColumn{}, false
	}

	expression := strings.TrimSpace(m[2])
	if expression == "" {
		return GeneratedColumn{}, false
	}

	return GeneratedColumn{
		Name:       column,
		Type:       strings.TrimSpace(m[1]),
		Expression: expression,
	}, true
}

// CleanViewDefinition strips the CREATE ... VIEW header (algorithm, definer,
// SQL security) and every qualification with schema from a SHOW CREATE VIEW
// statement. The result starts with the view name, e.g. "`v1` AS select ...".
func CleanViewDefinition(createView, schema string) string {
	definition := viewHeaderPattern.ReplaceAllString(createView, "")
	return StripSchemaQualifier(definition, schema)
}

// StripSchemaQualifier removes "schema." and "`schema`." prefixes from
// identifiers. Identifiers that merely end with the schema name are kept.
func StripSchemaQualifier(text, schema string) string {
	if schema == "" {
		return text
	}
	re := regexp.MustCompile("(?i)(^|[^\\w$`])`?" + regexp.QuoteMeta(schema) + "`?\\.")
	return re.ReplaceAllString(text, "${1}")
}

// maskLiterals blanks the contents of '...' and "..." literals so patterns
// never match inside them. Offsets and backtick identifiers are preserved.
func maskLiterals(text string) string {
	masked := []byte(text)
	var quote byte

	for i := 0; i < len(masked); i++ {
		ch := masked[i]
		switch {
		case quote == 0:
			if ch == '\'' || ch == '"' || ch == '`' {
				quote = ch
			}
		case quote == '`':
			if ch == '`' {
				quote = 0
			}
		case ch == '\\' && i+1 < len(masked):
			masked[i], masked[i+1] = ' ', ' '
			i++
		case ch == quote && i+1 < len(masked) && masked[i+1] == quote:
			masked[i], masked[i+1] = ' ', ' '
			i++
		case ch == quote:
			quote = 0
		default:
			masked[i] = ' '
		}
	}
	return string(masked)
}

func splitColumns(list string) []string {
	var columns []string
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		name = orderSuffixPattern.ReplaceAllString(name, "")
		name = prefixLengthPattern.ReplaceAllString(name, "")
		name = unquote(name)
		if name != "" {
			columns = append(columns, name)
		}
	}
	return columns
}

func unquote(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "`", ""))
}
