package mymcp

import (
	"context"
	"strconv"
	"time"

	"github.com/tmarkel/mysql-mcp/internal/ident"
	"github.com/tmarkel/mysql-mcp/internal/pool"
)

// Statements for the schema-lookup tool. All scoped to the connected
// database via DATABASE().

const tableExistsSQL = `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_name = ?
`

const listTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name
`

const columnsSQL = `
SELECT column_name, data_type, is_nullable, column_key,
       COALESCE(column_default, ''), extra
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position
`

// TableSchema is the schema-lookup tool: read-only metadata, always safe.
// For the sentinel "all-tables" it enumerates every base table in the
// connected database and returns each schema in enumeration order; for a
// concrete name it returns a single entry or TableNotFoundError.
func (p *MySQLMcp) TableSchema(ctx context.Context, input SchemaInput) (*SchemaOutput, error) {
	startTime := time.Now()

	if input.TableName == "" {
		return nil, invalidArgs("table_name is required")
	}
	if input.TableName != AllTables {
		if err := ident.Check("table", input.TableName); err != nil {
			return nil, invalidArgs("%v", err)
		}
	}

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(p.config.Query.SchemaTimeoutSeconds)*time.Second)
	defer cancel()

	lease, err := p.pool.Acquire(queryCtx)
	if err != nil {
		return nil, p.wrapAcquireError(err)
	}
	defer lease.Release()

	var schemas []TableSchema
	if input.TableName == AllTables {
		names, err := p.listTables(queryCtx, lease)
		if err != nil {
			return nil, err
		}
		schemas = make([]TableSchema, 0, len(names))
		for _, name := range names {
			schema, err := p.describeTable(queryCtx, lease, name)
			if err != nil {
				return nil, err
			}
			schemas = append(schemas, *schema)
		}
	} else {
		exists, err := p.tableExists(queryCtx, lease, input.TableName)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &TableNotFoundError{Table: input.TableName}
		}
		schema, err := p.describeTable(queryCtx, lease, input.TableName)
		if err != nil {
			return nil, err
		}
		schemas = []TableSchema{*schema}
	}

	p.logger.Info().
		Str("table_name", input.TableName).
		Int("table_count", len(schemas)).
		Dur("duration", time.Since(startTime)).
		Msg("schema lookup executed")

	return &SchemaOutput{Schemas: schemas}, nil
}

func (p *MySQLMcp) tableExists(ctx context.Context, lease *pool.Lease, table string) (bool, error) {
	rows, err := lease.Conn().QueryContext(ctx, tableExistsSQL, table)
	if err != nil {
		return false, p.databaseError(lease, err)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, p.databaseError(lease, err)
		}
	}
	if err := rows.Err(); err != nil {
		return false, p.databaseError(lease, err)
	}
	return count > 0, nil
}

func (p *MySQLMcp) listTables(ctx context.Context, lease *pool.Lease) ([]string, error) {
	rows, err := lease.Conn().QueryContext(ctx, listTablesSQL)
	if err != nil {
		return nil, p.databaseError(lease, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, p.databaseError(lease, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, p.databaseError(lease, err)
	}
	return names, nil
}

func (p *MySQLMcp) describeTable(ctx context.Context, lease *pool.Lease, table string) (*TableSchema, error) {
	columns, err := p.tableColumns(ctx, lease, table)
	if err != nil {
		return nil, err
	}
	indexes, err := p.tableIndexes(ctx, lease, table)
	if err != nil {
		return nil, err
	}
	return &TableSchema{Name: table, Columns: columns, Indexes: indexes}, nil
}

func (p *MySQLMcp) tableColumns(ctx context.Context, lease *pool.Lease, table string) ([]ColumnInfo, error) {
	rows, err := lease.Conn().QueryContext(ctx, columnsSQL, table)
	if err != nil {
		return nil, p.databaseError(lease, err)
	}
	defer rows.Close()

	columns := make([]ColumnInfo, 0)
	for rows.Next() {
		var col ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Key, &col.Default, &col.Extra); err != nil {
			return nil, p.databaseError(lease, err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, p.databaseError(lease, err)
	}
	return columns, nil
}

// tableIndexes reads SHOW INDEX output. The column set varies across
// MySQL/MariaDB versions, so rows are scanned generically and the fields of
// interest extracted by name.
func (p *MySQLMcp) tableIndexes(ctx context.Context, lease *pool.Lease, table string) ([]IndexInfo, error) {
	// SHOW INDEX does not take placeholders; the identifier has already been
	// validated (concrete name) or came from information_schema (all-tables).
	rows, err := lease.Conn().QueryContext(ctx, "SHOW INDEX FROM "+ident.Quote(table))
	if err != nil {
		return nil, p.databaseError(lease, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, p.databaseError(lease, err)
	}

	indexes := make([]IndexInfo, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		pointers := make([]any, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, p.databaseError(lease, err)
		}

		row := make(map[string]string, len(cols))
		for i, name := range cols {
			row[name] = asString(values[i])
		}

		nonUnique, _ := strconv.Atoi(row["Non_unique"])
		seq, _ := strconv.Atoi(row["Seq_in_index"])
		indexes = append(indexes, IndexInfo{
			Name:     row["Key_name"],
			Column:   row["Column_name"],
			Unique:   nonUnique == 0,
			Type:     row["Index_type"],
			Sequence: seq,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, p.databaseError(lease, err)
	}
	return indexes, nil
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
