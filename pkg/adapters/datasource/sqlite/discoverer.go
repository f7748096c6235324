package sqlite

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/biodb-tools/biodb-engine/pkg/adapters/datasource"
	"github.com/biodb-tools/biodb-engine/pkg/apperrors"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// Database size thresholds (bytes) above which we warn that analysis may be
// slow on large assembly databases.
const (
	sizeWarnBytes     = 1000 << 20
	sizeCriticalBytes = 2000 << 20
)

// Large-prime multiplier for the deterministic pseudo-random row ordering used
// by SampleColumn (Knuth's multiplicative hash constant).
const sampleHashPrime = 2654435761

// Discoverer provides read-only schema discovery and row access for a single
// SQLite database file. Not safe for concurrent use; concurrent sessions
// against the same file must each open their own Discoverer.
type Discoverer struct {
	conn   *sqlite.Conn
	path   string
	logger *zap.Logger
}

var (
	_ datasource.SchemaDiscoverer = (*Discoverer)(nil)
	_ datasource.RowSource        = (*Discoverer)(nil)
)

// Open opens the database file read-only and verifies it is a usable SQLite
// store. Failures wrap apperrors.ErrConnection.
// If logger is nil, a no-op logger is used.
func Open(path string, logger *zap.Logger) (*Discoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sqlite")

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrConnection, path, err)
	}
	switch {
	case info.Size() > sizeCriticalBytes:
		logger.Warn("database is very large, analysis may be slow; consider restricting tables",
			zap.String("path", path),
			zap.Int64("size_bytes", info.Size()))
	case info.Size() > sizeWarnBytes:
		logger.Warn("database is large, analysis performance may be affected",
			zap.String("path", path),
			zap.Int64("size_bytes", info.Size()))
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
	}

	// Opening is lazy; force a schema read so corrupt or non-SQLite files
	// surface here instead of mid-discovery.
	if err := sqlitex.ExecuteTransient(conn, "SELECT count(*) FROM sqlite_master", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error { return nil },
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: not a valid SQLite database: %v", apperrors.ErrConnection, err)
	}

	return &Discoverer{conn: conn, path: path, logger: logger}, nil
}

// Close releases the database connection.
func (d *Discoverer) Close() error {
	return d.conn.Close()
}

// Path returns the database file path.
func (d *Discoverer) Path() string { return d.path }

// quoteIdent quotes a SQL identifier for use in dynamically built statements.
// PRAGMA and metadata queries cannot bind identifiers as parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// DiscoverTables returns all user tables with row counts, in sqlite_master
// order. Internal sqlite_* tables are excluded.
func (d *Discoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	defer d.interrupt(ctx)()

	var names []string
	err := sqlitex.Execute(d.conn,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				names = append(names, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]datasource.TableMetadata, 0, len(names))
	for _, name := range names {
		var rowCount int64
		err := sqlitex.Execute(d.conn, "SELECT count(*) FROM "+quoteIdent(name), &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rowCount = stmt.ColumnInt64(0)
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("count rows of %s: %w", name, err)
		}
		tables = append(tables, datasource.TableMetadata{TableName: name, RowCount: rowCount})
	}

	d.logger.Debug("discovered tables", zap.Int("count", len(tables)))
	return tables, nil
}

// DiscoverColumns returns the columns of a table in ordinal position order.
// A zero-column result means the table is malformed (or absent) and wraps
// apperrors.ErrSchema.
func (d *Discoverer) DiscoverColumns(ctx context.Context, table string) ([]datasource.ColumnMetadata, error) {
	defer d.interrupt(ctx)()

	var columns []datasource.ColumnMetadata
	err := sqlitex.Execute(d.conn, "PRAGMA table_info("+quoteIdent(table)+")", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			col := datasource.ColumnMetadata{
				OrdinalPosition: stmt.ColumnInt(0),
				ColumnName:      stmt.ColumnText(1),
				DeclaredType:    stmt.ColumnText(2),
				IsNullable:      stmt.ColumnInt(3) == 0,
				IsPrimaryKey:    stmt.ColumnInt(5) > 0,
			}
			if stmt.ColumnType(4) != sqlite.TypeNull {
				v := stmt.ColumnText(4)
				col.DefaultValue = &v
			}
			columns = append(columns, col)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("table info for %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %q has no columns", apperrors.ErrSchema, table)
	}
	return columns, nil
}

// DiscoverForeignKeys returns the declared foreign key constraints of a table.
// Most assembly databases declare none; relationship inference fills the gap.
func (d *Discoverer) DiscoverForeignKeys(ctx context.Context, table string) ([]datasource.ForeignKeyMetadata, error) {
	defer d.interrupt(ctx)()

	var fks []datasource.ForeignKeyMetadata
	err := sqlitex.Execute(d.conn, "PRAGMA foreign_key_list("+quoteIdent(table)+")", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			// columns: id, seq, table, from, to, on_update, on_delete, match
			fks = append(fks, datasource.ForeignKeyMetadata{
				SourceTable:  table,
				SourceColumn: stmt.ColumnText(3),
				TargetTable:  stmt.ColumnText(2),
				TargetColumn: stmt.ColumnText(4),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("foreign key list for %s: %w", table, err)
	}
	return fks, nil
}

// SampleColumn returns up to cap values from the column. When the table fits
// under the cap the whole column is returned in rowid order; otherwise rows
// are taken in a seeded pseudo-random rowid ordering, which is deterministic
// for a fixed seed on unchanged content.
func (d *Discoverer) SampleColumn(ctx context.Context, table, column string, sampleCap int, seed int64) ([]models.Value, error) {
	defer d.interrupt(ctx)()

	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY (rowid * %d + ?) %% 1000000007 LIMIT ?",
		quoteIdent(column), quoteIdent(table), sampleHashPrime)

	values := make([]models.Value, 0, sampleCap)
	err := sqlitex.Execute(d.conn, query, &sqlitex.ExecOptions{
		Args: []any{seed, sampleCap},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			values = append(values, columnValue(stmt, 0))
			return nil
		},
	})
	if err == nil {
		return values, nil
	}

	// WITHOUT ROWID tables have no rowid; fall back to declaration order,
	// which is equally deterministic.
	values = values[:0]
	fallback := fmt.Sprintf("SELECT %s FROM %s LIMIT ?", quoteIdent(column), quoteIdent(table))
	if err := sqlitex.Execute(d.conn, fallback, &sqlitex.ExecOptions{
		Args: []any{sampleCap},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			values = append(values, columnValue(stmt, 0))
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", table, column, err)
	}
	return values, nil
}

// CheckValueOverlap measures how many distinct values the two columns share.
// MatchRate is relative to the smaller distinct set, per the relationship
// inference contract.
func (d *Discoverer) CheckValueOverlap(ctx context.Context, sourceTable, sourceColumn, targetTable, targetColumn string) (*datasource.ValueOverlapResult, error) {
	defer d.interrupt(ctx)()

	distinct := func(table, column string) (int64, error) {
		var n int64
		query := fmt.Sprintf("SELECT count(DISTINCT %s) FROM %s WHERE %s IS NOT NULL",
			quoteIdent(column), quoteIdent(table), quoteIdent(column))
		err := sqlitex.Execute(d.conn, query, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n = stmt.ColumnInt64(0)
				return nil
			},
		})
		return n, err
	}

	sourceDistinct, err := distinct(sourceTable, sourceColumn)
	if err != nil {
		return nil, fmt.Errorf("distinct count %s.%s: %w", sourceTable, sourceColumn, err)
	}
	targetDistinct, err := distinct(targetTable, targetColumn)
	if err != nil {
		return nil, fmt.Errorf("distinct count %s.%s: %w", targetTable, targetColumn, err)
	}

	var matched int64
	query := fmt.Sprintf(
		"SELECT count(*) FROM (SELECT DISTINCT %s AS v FROM %s WHERE %s IS NOT NULL INTERSECT SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL)",
		quoteIdent(sourceColumn), quoteIdent(sourceTable), quoteIdent(sourceColumn),
		quoteIdent(targetColumn), quoteIdent(targetTable), quoteIdent(targetColumn))
	if err := sqlitex.Execute(d.conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			matched = stmt.ColumnInt64(0)
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("value overlap %s.%s vs %s.%s: %w", sourceTable, sourceColumn, targetTable, targetColumn, err)
	}

	result := &datasource.ValueOverlapResult{
		SourceDistinct: sourceDistinct,
		TargetDistinct: targetDistinct,
		MatchedCount:   matched,
	}
	smaller := min(sourceDistinct, targetDistinct)
	if smaller > 0 {
		result.MatchRate = float64(matched) / float64(smaller)
	}
	return result, nil
}

// FetchRows returns up to limit rows of the given columns in rowid order.
func (d *Discoverer) FetchRows(ctx context.Context, table string, columns []string, limit int) ([][]models.Value, error) {
	defer d.interrupt(ctx)()

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s LIMIT ?", strings.Join(quoted, ", "), quoteIdent(table))

	var rows [][]models.Value
	err := sqlitex.Execute(d.conn, query, &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row := make([]models.Value, len(columns))
			for i := range columns {
				row[i] = columnValue(stmt, i)
			}
			rows = append(rows, row)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch rows from %s: %w", table, err)
	}
	return rows, nil
}

// interrupt wires ctx cancellation into the connection for the duration of
// one call. The returned func restores the previous interrupt channel.
func (d *Discoverer) interrupt(ctx context.Context) func() {
	prev := d.conn.SetInterrupt(ctx.Done())
	return func() { d.conn.SetInterrupt(prev) }
}

// columnValue converts one result cell into the tagged Value variant.
// BLOBs are read as text; they normally carry serialized auxiliary payloads
// and end up classified as free-text downstream.
func columnValue(stmt *sqlite.Stmt, i int) models.Value {
	switch stmt.ColumnType(i) {
	case sqlite.TypeInteger:
		return models.IntValue(stmt.ColumnInt64(i))
	case sqlite.TypeFloat:
		return models.FloatValue(stmt.ColumnFloat(i))
	case sqlite.TypeText, sqlite.TypeBlob:
		return models.TextValue(stmt.ColumnText(i))
	default:
		return models.NullValue()
	}
}
