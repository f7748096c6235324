package datasource

// TableMetadata represents a discovered database table.
type TableMetadata struct {
	TableName string
	RowCount  int64
}

// ColumnMetadata represents a discovered database column.
type ColumnMetadata struct {
	ColumnName      string
	DeclaredType    string
	IsNullable      bool
	IsPrimaryKey    bool
	OrdinalPosition int
	DefaultValue    *string
}

// ForeignKeyMetadata represents a declared foreign key constraint.
type ForeignKeyMetadata struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
}

// ValueOverlapResult contains results from value overlap analysis.
type ValueOverlapResult struct {
	SourceDistinct int64
	TargetDistinct int64
	MatchedCount   int64
	// MatchRate is MatchedCount over the smaller of the two distinct sets.
	MatchRate float64
}
