// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// The package does not know any SQL dialect. Identifier quoting, existence
// guards and trailing clauses come from a Style supplied by the storage
// dialect. ColumnDef.Default is raw SQL and the caller is responsible for
// its correctness.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty and every column needs a Name and SQLType.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//   - Columns with PrimaryKey == true are collected into one trailing
//     PRIMARY KEY clause. Foreign keys follow it, each as
//     FOREIGN KEY (...) REFERENCES <table> (...) [ON DELETE <action>] [<FKSuffix>].
//
//   - Foreign key columns must be declared columns of t.
func BuildCreateTableSQL(t TableDef, st Style) (string, error) {
	q := st.Quote
	if q == nil {
		q = func(s string) string { return s }
	}

	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	known := make(map[string]bool, len(t.Columns))
	defs := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	pks := make([]string, 0, 1)

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}
		known[name] = true

		var sb strings.Builder
		sb.WriteString(q(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		defs = append(defs, sb.String())

		if c.PrimaryKey {
			pks = append(pks, q(name))
		}
	}

	if len(pks) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) || fk.RefTable == "" {
			return "", fmt.Errorf("ddl: malformed foreign key on table %s", fqn)
		}
		cols := make([]string, len(fk.Columns))
		for i, c := range fk.Columns {
			if !known[c] {
				return "", fmt.Errorf("ddl: foreign key column %s is not a column of %s", c, fqn)
			}
			cols[i] = q(c)
		}
		refs := make([]string, len(fk.RefColumns))
		for i, c := range fk.RefColumns {
			refs[i] = q(c)
		}

		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			strings.Join(cols, ", "), q(fk.RefTable), strings.Join(refs, ", "))
		if fk.OnDelete != "" {
			clause += " ON DELETE " + fk.OnDelete
		}
		if st.FKSuffix != "" {
			clause += " " + st.FKSuffix
		}
		defs = append(defs, clause)
	}

	guard := ""
	if st.IfNotExists {
		guard = "IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("CREATE TABLE %s%s (\n  %s\n)", guard, q(fqn), strings.Join(defs, ",\n  "))
	if st.TableOptions != "" {
		stmt += " " + st.TableOptions
	}
	if st.Wrap != nil {
		stmt = st.Wrap(fqn, stmt)
	}
	return stmt, nil
}
