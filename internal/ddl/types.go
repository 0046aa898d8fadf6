package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, DATE)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// ForeignKey references the primary key of another table.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	// OnDelete is the raw referential action, e.g. "CASCADE". Empty omits it.
	OnDelete string
}

// TableDef holds the table name, an ordered list of columns and the
// foreign keys declared on it.
type TableDef struct {
	FQN         string
	Columns     []ColumnDef
	ForeignKeys []ForeignKey
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Style adapts rendering to a dialect. The zero Style emits names verbatim
// with no existence guard.
type Style struct {
	// Quote escapes an identifier. Nil leaves names untouched.
	Quote func(string) string
	// IfNotExists adds IF NOT EXISTS after CREATE TABLE.
	IfNotExists bool
	// FKSuffix is appended to each FOREIGN KEY clause after any ON DELETE
	// action, e.g. the deferrability mode.
	FKSuffix string
	// TableOptions is appended after the closing parenthesis.
	TableOptions string
	// Wrap post-processes the complete statement, for dialects that guard
	// creation with their own conditional. It receives the unquoted name.
	Wrap func(table, stmt string) string
}
