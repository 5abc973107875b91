package mymcp

// SchemaInput is the input for the schema-lookup tool. TableName is either a
// concrete table name or the sentinel "all-tables".
type SchemaInput struct {
	TableName string `json:"table_name"`
}

// AllTables is the sentinel accepted by the schema-lookup tool.
const AllTables = "all-tables"

// ColumnInfo describes a single column of a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Key      string `json:"key,omitempty"`
	Default  string `json:"default,omitempty"`
	Extra    string `json:"extra,omitempty"`
}

// IndexInfo describes a single index column entry as reported by SHOW INDEX.
type IndexInfo struct {
	Name     string `json:"name"`
	Column   string `json:"column"`
	Unique   bool   `json:"unique"`
	Type     string `json:"type,omitempty"`
	Sequence int    `json:"seq_in_index,omitempty"`
}

// TableSchema is the full schema of one table.
type TableSchema struct {
	Name    string       `json:"table_name"`
	Columns []ColumnInfo `json:"columns"`
	Indexes []IndexInfo  `json:"indexes"`
}

// SchemaOutput is the output of the schema-lookup tool: one entry for a
// concrete table name, one entry per table for "all-tables", in database
// enumeration order.
type SchemaOutput struct {
	Schemas []TableSchema `json:"schemas"`
}

// QueryInput is the input for the query tool. Params are optional bind
// values substituted for `?` placeholders.
type QueryInput struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// QueryOutput is the output of the query tool. Rows is populated for
// read-only statements; RowsAffected for mutating statements executed under
// the dangerous-allowed policy.
type QueryOutput struct {
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	RowsAffected int64            `json:"rows_affected"`
	Truncated    bool             `json:"truncated,omitempty"`
	Notice       string           `json:"notice,omitempty"`
}

// InsertInput is the input for the insert tool.
type InsertInput struct {
	Table  string         `json:"table"`
	Values map[string]any `json:"values"`
}

// UpdateInput is the input for the update tool. Where is a SQL condition
// fragment; bind values for its `?` placeholders ride in Params.
type UpdateInput struct {
	Table  string         `json:"table"`
	Set    map[string]any `json:"set"`
	Where  string         `json:"where"`
	Params []any          `json:"params,omitempty"`
}

// DeleteInput is the input for the delete tool.
type DeleteInput struct {
	Table  string `json:"table"`
	Where  string `json:"where"`
	Params []any  `json:"params,omitempty"`
}

// MutationOutput is the output of the insert, update, and delete tools.
type MutationOutput struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id,omitempty"`
}
