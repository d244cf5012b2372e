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
package corrective

import (
	"github.com/ocomsoft/knexdump/internal/mapper"
	"github.com/ocomsoft/knexdump/internal/types"
)

// PrimaryKey tracks the primary key columns of one table in column order.
// A composite key grows in place as columns are added, so the table script
// always carries a single primary key statement.
type PrimaryKey struct {
	columns       []string
	autoIncrement []string
	generated     []string // key columns re-added after create
	unmapped      []string // key columns that are never created
}

// NewPrimaryKey collects the primary key of the given columns
func NewPrimaryKey(columns []types.ColumnMetadata) *PrimaryKey {
	pk := &PrimaryKey{}
	for _, col := range columns {
		pk.Add(col)
	}
	return pk
}

// Add records the column if it belongs to the primary key or is auto-incremented
func (p *PrimaryKey) Add(col types.ColumnMetadata) {
	if col.IsPrimary() {
		p.columns = append(p.columns, col.Name)
		switch {
		case col.Extra.IsGenerated():
			p.generated = append(p.generated, col.Name)
		case col.Extra != types.ExtraAutoIncrement && !mapper.IsMapped(col.DataType):
			p.unmapped = append(p.unmapped, col.Name)
		}
	}
	if col.Extra == types.ExtraAutoIncrement {
		p.autoIncrement = append(p.autoIncrement, col.Name)
	}
}

// Columns returns the primary key columns in order
func (p *PrimaryKey) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// First returns the first primary key column, or "" without a primary key
func (p *PrimaryKey) First() string {
	if len(p.columns) == 0 {
		return ""
	}
	return p.columns[0]
}

// IsSole reports whether name is the only primary key column
func (p *PrimaryKey) IsSole(name string) bool {
	return len(p.columns) == 1 && p.columns[0] == name
}

// Declared reports whether the key is declared inside the create-table body.
// With an auto-increment column the key comes from table.increments() and,
// when it differs, is rebuilt by the auto-increment corrections.
func (p *PrimaryKey) Declared() bool {
	return len(p.columns) > 0 && len(p.autoIncrement) == 0 &&
		len(p.generated) == 0 && len(p.unmapped) == 0
}

// Deferred reports whether the key must be added after its generated
// columns have been re-added
func (p *PrimaryKey) Deferred() bool {
	return len(p.generated) > 0 && len(p.autoIncrement) == 0 && len(p.unmapped) == 0
}

// Complete reports whether every key column exists in the generated table
func (p *PrimaryKey) Complete() bool {
	return len(p.unmapped) == 0
}

// Present returns the key columns that exist in the generated table
func (p *PrimaryKey) Present() []string {
	var out []string
	for _, c := range p.columns {
		if !contains(p.unmapped, c) {
			out = append(out, c)
		}
	}
	return out
}

// Unmapped returns the key columns without a Knex mapping
func (p *PrimaryKey) Unmapped() []string {
	out := make([]string, len(p.unmapped))
	copy(out, p.unmapped)
	return out
}

// Statement renders the Knex primary key statement
func (p *PrimaryKey) Statement() string {
	return "table.primary(" + mapper.QuoteList(p.columns) + ")"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
