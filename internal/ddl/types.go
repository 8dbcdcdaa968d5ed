package ddl

// Kind is the logical type of a column, inferred from the values it holds.
// Backends map kinds to their own SQL types.
type Kind string

const (
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindDateTime Kind = "datetime"
	KindBytes    Kind = "bytes"
	KindText     Kind = "text"
)

// ColumnDef describes a single column of a table to be created.
//
// Fields:
//   - Name: column name, unquoted (quoting happens at render time)
//   - Kind: logical type the SQLType was mapped from
//   - SQLType: backend column type (e.g. INTEGER, TIMESTAMP, NVARCHAR(MAX))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Kind       Kind
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name (optionally schema-qualified, dotted) and its
// ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
