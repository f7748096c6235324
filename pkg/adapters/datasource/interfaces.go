package datasource

import (
	"context"

	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// SchemaDiscoverer enumerates tables, columns, declared foreign keys and row
// counts, and samples column values for classification. No semantic
// interpretation happens at this layer.
// Each implementation owns its connection and must be closed when done.
type SchemaDiscoverer interface {
	// DiscoverTables returns all user tables with approximate row counts.
	DiscoverTables(ctx context.Context) ([]TableMetadata, error)

	// DiscoverColumns returns columns for a specific table in ordinal
	// position order. A zero-column table is a malformed schema.
	DiscoverColumns(ctx context.Context, table string) ([]ColumnMetadata, error)

	// DiscoverForeignKeys returns declared foreign key constraints for a table.
	DiscoverForeignKeys(ctx context.Context, table string) ([]ForeignKeyMetadata, error)

	// SampleColumn returns up to cap values from a column. The sample is
	// deterministic for a fixed seed on unchanged database content.
	SampleColumn(ctx context.Context, table, column string, sampleCap int, seed int64) ([]models.Value, error)

	// CheckValueOverlap measures distinct-value overlap between two columns
	// (for relationship inference).
	CheckValueOverlap(ctx context.Context, sourceTable, sourceColumn, targetTable, targetColumn string) (*ValueOverlapResult, error)

	// Close releases the database connection.
	Close() error
}

// RowSource fetches live rows for plan execution.
type RowSource interface {
	// FetchRows returns up to limit rows of the given columns, in column
	// order. Null cells come back as the null Value variant; missing-data
	// handling is the caller's responsibility.
	FetchRows(ctx context.Context, table string, columns []string, limit int) ([][]models.Value, error)
}
