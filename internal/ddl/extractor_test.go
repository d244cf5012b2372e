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
package ddl

import (
	"reflect"
	"testing"

	"github.com/ocomsoft/knexdump/internal/types"
)

const ordersTable = "CREATE TABLE `orders` (\n" +
	"  `id` int(10) unsigned NOT NULL AUTO_INCREMENT,\n" +
	"  `customer_id` int(10) unsigned NOT NULL,\n" +
	"  `code` char(8) CHARACTER SET latin1 NOT NULL,\n" +
	"  `first_name` varchar(50) NOT NULL,\n" +
	"  `last_name` varchar(50) NOT NULL,\n" +
	"  `full_name` varchar(101) GENERATED ALWAYS AS (concat(`first_name`,\" \",`last_name`)) VIRTUAL,\n" +
	"  `notes` text,\n" +
	"  PRIMARY KEY (`id`),\n" +
	"  UNIQUE KEY `uq_orders_code` (`code`),\n" +
	"  KEY `idx_orders_name` (`last_name`,`first_name`),\n" +
	"  KEY `idx_orders_notes` (`notes`(32)),\n" +
	"  FULLTEXT KEY `ft_orders_notes` (`notes`),\n" +
	"  KEY `fk_orders_customer` (`customer_id`),\n" +
	"  CONSTRAINT `fk_orders_customer` FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`) ON DELETE CASCADE ON UPDATE NO ACTION\n" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

func TestExtractIndexes(t *testing.T) {
	indexes := ExtractIndexes(ordersTable)

	expected := []types.IndexDescriptor{
		{Type: "UNIQUE", Name: "uq_orders_code", Columns: []string{"code"}},
		{Type: "", Name: "idx_orders_name", Columns: []string{"last_name", "first_name"}},
		{Type: "", Name: "idx_orders_notes", Columns: []string{"notes"}},
		{Type: "FULLTEXT", Name: "ft_orders_notes", Columns: []string{"notes"}},
		{Type: "", Name: "fk_orders_customer", Columns: []string{"customer_id"}},
	}

	if !reflect.DeepEqual(indexes, expected) {
		t.Fatalf("ExtractIndexes() = %+v; expected %+v", indexes, expected)
	}
}

func TestExtractIndexes_None(t *testing.T) {
	sql := "CREATE TABLE `plain` (\n  `id` int NOT NULL,\n  PRIMARY KEY (`id`)\n) ENGINE=InnoDB"
	if indexes := ExtractIndexes(sql); len(indexes) != 0 {
		t.Errorf("Expected no indexes, got %+v", indexes)
	}
	if indexes := ExtractIndexes(""); len(indexes) != 0 {
		t.Errorf("Expected no indexes for empty text, got %+v", indexes)
	}
}

func TestExtractIndexes_Unquoted(t *testing.T) {
	sql := "create table t (a int, b int, unique index uq_ab (a, b), key idx_b (b desc))"
	indexes := ExtractIndexes(sql)

	expected := []types.IndexDescriptor{
		{Type: "UNIQUE", Name: "uq_ab", Columns: []string{"a", "b"}},
		{Type: "", Name: "idx_b", Columns: []string{"b"}},
	}
	if !reflect.DeepEqual(indexes, expected) {
		t.Fatalf("ExtractIndexes() = %+v; expected %+v", indexes, expected)
	}
}

func TestExtractIndexes_Restartable(t *testing.T) {
	first := ExtractIndexes(ordersTable)
	second := ExtractIndexes(ordersTable)
	if !reflect.DeepEqual(first, second) {
		t.Error("Repeated extraction should return identical results")
	}
}

func TestExtractForeignKeys(t *testing.T) {
	fks := ExtractForeignKeys(ordersTable)

	expected := []types.ForeignKeyDescriptor{
		{
			Name:       "fk_orders_customer",
			Columns:    []string{"customer_id"},
			RefTable:   "customers",
			RefColumns: []string{"id"},
			Clause:     "ON DELETE CASCADE ON UPDATE NO ACTION",
		},
	}
	if !reflect.DeepEqual(fks, expected) {
		t.Fatalf("ExtractForeignKeys() = %+v; expected %+v", fks, expected)
	}
}

func TestExtractForeignKeys_MultiLineAndComposite(t *testing.T) {
	sql := "CREATE TABLE `lines` (\n" +
		"  `order_id` int NOT NULL,\n" +
		"  `tenant_id` int NOT NULL,\n" +
		"  constraint fk_lines_order\n" +
		"    foreign key (order_id, tenant_id)\n" +
		"    references orders (id, tenant_id),\n" +
		"  CONSTRAINT `fk_lines_tenant` FOREIGN KEY (`tenant_id`) REFERENCES `tenants` (`id`)\n" +
		")"

	fks := ExtractForeignKeys(sql)
	if len(fks) != 2 {
		t.Fatalf("Expected 2 foreign keys, got %d: %+v", len(fks), fks)
	}

	if fks[0].Name != "fk_lines_order" {
		t.Errorf("Expected name fk_lines_order, got %s", fks[0].Name)
	}
	if !reflect.DeepEqual(fks[0].Columns, []string{"order_id", "tenant_id"}) {
		t.Errorf("Unexpected local columns %v", fks[0].Columns)
	}
	if fks[0].RefTable != "orders" {
		t.Errorf("Expected referenced table orders, got %s", fks[0].RefTable)
	}
	if !reflect.DeepEqual(fks[0].RefColumns, []string{"id", "tenant_id"}) {
		t.Errorf("Unexpected referenced columns %v", fks[0].RefColumns)
	}
	if fks[0].Clause != "" {
		t.Errorf("Expected empty clause, got %q", fks[0].Clause)
	}
	if fks[1].Name != "fk_lines_tenant" || fks[1].RefTable != "tenants" {
		t.Errorf("Unexpected second foreign key %+v", fks[1])
	}
}

func TestExtractForeignKeys_None(t *testing.T) {
	if fks := ExtractForeignKeys("CREATE TABLE `t` (`id` int)"); len(fks) != 0 {
		t.Errorf("Expected no foreign keys, got %+v", fks)
	}
}

func TestExtractGeneratedColumn(t *testing.T) {
	gen, ok := ExtractGeneratedColumn(ordersTable, "full_name")
	if !ok {
		t.Fatal("Expected generated column full_name to be found")
	}
	if gen.Type != "varchar(101)" {
		t.Errorf("Expected type varchar(101), got %q", gen.Type)
	}
	expected := "ALWAYS AS (concat(`first_name`,\" \",`last_name`)) VIRTUAL"
	if gen.Expression != expected {
		t.Errorf("Expected expression %q, got %q", expected, gen.Expression)
	}
}

func TestExtractGeneratedColumn_LastLineWithoutComma(t *testing.T) {
	sql := "CREATE TABLE `t` (\n  `a` int NOT NULL,\n  `b` int GENERATED ALWAYS AS ((`a` * 2)) STORED\n)"
	gen, ok := ExtractGeneratedColumn(sql, "b")
	if !ok {
		t.Fatal("Expected generated column b to be found")
	}
	if gen.Type != "int" || gen.Expression != "ALWAYS AS ((`a` * 2)) STORED" {
		t.Errorf("Unexpected generated column %+v", gen)
	}
}

func TestExtractGeneratedColumn_NotGenerated(t *testing.T) {
	if _, ok := ExtractGeneratedColumn(ordersTable, "first_name"); ok {
		t.Error("first_name is not a generated column")
	}
	if _, ok := ExtractGeneratedColumn(ordersTable, "missing"); ok {
		t.Error("missing column should not be found")
	}
	// "name" is a suffix of generated column "full_name" and must not match it
	if _, ok := ExtractGeneratedColumn(ordersTable, "name"); ok {
		t.Error("partial column name should not match")
	}
}

func TestCleanViewDefinition(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		schema   string
		expected string
	}{
		{
			name:     "unquoted schema",
			input:    "CREATE ALGORITHM=UNDEFINED DEFINER=`root`@`localhost` SQL SECURITY DEFINER VIEW db.v1 AS SELECT db.t1.a FROM db.t1",
			schema:   "db",
			expected: "v1 AS SELECT t1.a FROM t1",
		},
		{
			name:     "quoted schema",
			input:    "CREATE ALGORITHM=UNDEFINED DEFINER=`app`@`%` SQL SECURITY INVOKER VIEW `shop`.`v_orders` AS select `shop`.`orders`.`id` AS `id` from `shop`.`orders`",
			schema:   "shop",
			expected: "`v_orders` AS select `orders`.`id` AS `id` from `orders`",
		},
		{
			name:     "no header",
			input:    "CREATE VIEW `v` AS select 1 AS `one`",
			schema:   "db",
			expected: "`v` AS select 1 AS `one`",
		},
		{
			name:     "similar schema name kept",
			input:    "CREATE VIEW v AS SELECT mydb.t.a FROM mydb.t JOIN db.u",
			schema:   "db",
			expected: "v AS SELECT mydb.t.a FROM mydb.t JOIN u",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := CleanViewDefinition(test.input, test.schema)
			if result != test.expected {
				t.Errorf("CleanViewDefinition() = %q; expected %q", result, test.expected)
			}
		})
	}
}

func TestStripSchemaQualifier_EmptySchema(t *testing.T) {
	input := "SELECT db.t.a FROM db.t"
	if result := StripSchemaQualifier(input, ""); result != input {
		t.Errorf("Expected text unchanged, got %q", result)
	}
}

func TestExtractIndexes_IgnoresLiterals(t *testing.T) {
	sql := "CREATE TABLE `items` (\n" +
		"  `id` int NOT NULL,\n" +
		"  `sku` varchar(20) NOT NULL COMMENT 'lookup key legacy (old)',\n" +
		"  `note` varchar(20) DEFAULT 'it''s an index x (y)',\n" +
		"  `alt` varchar(20) DEFAULT \"key k (\\\"z\\\")\",\n" +
		"  PRIMARY KEY (`id`),\n" +
		"  KEY `idx_items_sku` (`sku`)\n" +
		") ENGINE=InnoDB COMMENT='unique key u (v)'"

	indexes := ExtractIndexes(sql)

	expected := []types.IndexDescriptor{
		{Type: "", Name: "idx_items_sku", Columns: []string{"sku"}},
	}
	if !reflect.DeepEqual(indexes, expected) {
		t.Errorf("ExtractIndexes() = %+v; expected %+v", indexes, expected)
	}
}

func TestExtractIndexes_OnlyKnownModifiers(t *testing.T) {
	sql := "create table t (a int, b int, lookup key k_a (a), spatial index sp_b (b))"

	indexes := ExtractIndexes(sql)

	expected := []types.IndexDescriptor{
		{Type: "", Name: "k_a", Columns: []string{"a"}},
		{Type: "SPATIAL", Name: "sp_b", Columns: []string{"b"}},
	}
	if !reflect.DeepEqual(indexes, expected) {
		t.Errorf("ExtractIndexes() = %+v; expected %+v", indexes, expected)
	}
}

func TestMaskLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a 'bc' d", "a '  ' d"},
		{"'it''s'", "'     '"},
		{`"x\"y"`, `"    "`},
		{"`k'ey` 'v'", "`k'ey` ' '"},
		{"no literals", "no literals"},
	}

	for _, test := range tests {
		result := maskLiterals(test.input)
		if result != test.expected {
			t.Errorf("maskLiterals(%q) = %q; expected %q", test.input, result, test.expected)
		}
		if len(result) != len(test.input) {
			t.Errorf("maskLiterals(%q) changed the length", test.input)
		}
	}
}
