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
package generator

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/knexdump/internal/corrective"
	"github.com/ocomsoft/knexdump/internal/ddl"
	"github.com/ocomsoft/knexdump/internal/mapper"
	"github.com/ocomsoft/knexdump/internal/types"
)

const (
	upHeader   = "exports.up = function(knex, Promise) {"
	downHeader = "exports.down = function(knex, Promise) {"
)

// Generator compiles table and view snapshots into Knex migration scripts.
// It holds no state between calls; one Generator may be shared by many goroutines.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// Result is a compiled table script with the warnings raised while compiling it
type Result struct {
	Script   types.MigrationScript
	Warnings []types.Warning
}

// GenerateTableMigration builds the create-table script for one table
func (g *Generator) GenerateTableMigration(table types.TableSnapshot) Result {
	pk := corrective.NewPrimaryKey(table.Columns)

	var (
		up       jsBuilder
		warnings []types.Warning
	)

	up.line(0, upHeader)
	up.line(1, fmt.Sprintf("return knex.schema.createTable(%s, (table) => {", mapper.Quote(table.Name)))

	for _, col := range table.Columns {
		decl, ok := mapper.MapColumn(col)
		switch {
		case ok:
			up.line(2, decl.Statement+";")
		case !col.Extra.IsGenerated():
			warnings = append(warnings, types.Warning{
				Kind:   types.WarningUnmappedType,
				Table:  table.Name,
				Column: col.Name,
				Detail: fmt.Sprintf("data type %q has no Knex mapping", col.DataType),
			})
		}

		if col.Name == pk.First() && pk.Declared() {
			up.line(2, pk.Statement()+";")
		}
	}
	up.line(1, "})")

	plan := corrective.Plan(table, pk)
	warnings = append(warnings, plan.Warnings...)

	for _, stmt := range plan.Generated {
		up.line(1, raw(stmt))
	}
	for _, stmt := range plan.PrimaryKey {
		up.line(1, raw(stmt))
	}
	if len(plan.Indexes) > 0 {
		up.line(1, fmt.Sprintf(".alterTable(%s, (table) => {", mapper.Quote(table.Name)))
		for _, idx := range plan.Indexes {
			up.line(2, indexStatement(idx)+";")
		}
		up.line(1, "})")
	}
	for _, stmt := range plan.Chars {
		up.line(1, raw(stmt))
	}
	for _, stmt := range plan.Binaries {
		up.line(1, raw(stmt))
	}
	for _, stmt := range plan.AutoIncrement {
		up.line(1, raw(stmt))
	}
	up.terminate()
	up.line(0, "}")

	var down jsBuilder
	down.line(0, downHeader)
	down.line(1, fmt.Sprintf("return knex.schema.dropTable(%s);", mapper.Quote(table.Name)))
	down.line(0, "}")

	return Result{
		Script: types.MigrationScript{
			EntityName: table.Name,
			Kind:       types.ScriptTable,
			Up:         up.String(),
			Down:       down.String(),
		},
		Warnings: warnings,
	}
}

// GenerateViewMigration builds the create-or-replace script for one view
func (g *Generator) GenerateViewMigration(view types.ViewSnapshot) types.MigrationScript {
	definition := strings.TrimSpace(ddl.CleanViewDefinition(view.CreateStatement, view.Schema))

	var up jsBuilder
	up.line(0, upHeader)
	up.line(1, fmt.Sprintf("return knex.raw(%s);", jsString("CREATE OR REPLACE VIEW "+definition)))
	up.line(0, "}")

	var down jsBuilder
	down.line(0, downHeader)
	down.line(1, fmt.Sprintf("return knex.raw(%s);", jsString("DROP VIEW "+corrective.QuoteIdent(view.Name))))
	down.line(0, "}")

	return types.MigrationScript{
		EntityName: view.Name,
		Kind:       types.ScriptView,
		Up:         up.String(),
		Down:       down.String(),
	}
}

// GenerateForeignKeyMigration builds the script adding every foreign key of
// the table. It reports false when the table declares none.
func (g *Generator) GenerateForeignKeyMigration(table types.TableSnapshot) (types.MigrationScript, bool) {
	fks := ddl.ExtractForeignKeys(table.CreateStatement)
	if len(fks) == 0 {
		return types.MigrationScript{}, false
	}

	tableName := corrective.QuoteIdent(table.Name)

	var up jsBuilder
	up.line(0, upHeader)
	for i, fk := range fks {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			tableName, corrective.QuoteIdent(fk.Name), identList(fk.Columns),
			qualifiedIdent(fk.RefTable), identList(fk.RefColumns))
		if fk.Clause != "" {
			stmt += " " + fk.Clause
		}
		chainLink(&up, i, stmt)
	}
	up.terminate()
	up.line(0, "}")

	var down jsBuilder
	down.line(0, downHeader)
	for i, fk := range fks {
		chainLink(&down, i, fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", tableName, corrective.QuoteIdent(fk.Name)))
	}
	down.terminate()
	down.line(0, "}")

	return types.MigrationScript{
		EntityName: table.Name,
		Kind:       types.ScriptForeignKeys,
		Up:         up.String(),
		Down:       down.String(),
	}, true
}

func chainLink(b *jsBuilder, i int, stmt string) {
	if i == 0 {
		b.line(1, "return knex.schema"+raw(stmt))
		return
	}
	b.line(2, raw(stmt))
}

func raw(stmt string) string {
	return ".raw(" + jsString(stmt) + ")"
}

func indexStatement(idx types.IndexDescriptor) string {
	args := []string{mapper.QuoteList(idx.Columns), mapper.Quote(idx.Name)}
	if idx.Type != "" {
		args = append(args, mapper.Quote(idx.Type))
	}
	return "table.index(" + strings.Join(args, ", ") + ")"
}

func identList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = corrective.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// qualifiedIdent quotes a possibly schema-qualified name part by part
func qualifiedIdent(name string) string {
	schema, table, ok := strings.Cut(name, ".")
	if !ok {
		return corrective.QuoteIdent(name)
	}
	return corrective.QuoteIdent(schema) + "." + corrective.QuoteIdent(table)
}
