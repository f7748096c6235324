package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/adapters/datasource"
	"github.com/biodb-tools/biodb-engine/pkg/apperrors"
	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// columnMeta is the schema-level column description fed to the classifier.
type columnMeta struct {
	Name         string
	DeclaredType string
	IsNullable   bool
	IsPrimaryKey bool
}

// ModelBuilder assembles reader output and column classifications into a
// schema model, inferring cross-table relationships by name match confirmed
// by value overlap. The returned model is immutable for the session.
type ModelBuilder struct {
	discoverer datasource.SchemaDiscoverer
	classifier *Classifier
	sampling   config.SamplingConfig
	rels       config.RelationshipConfig
	logger     *zap.Logger
}

// NewModelBuilder creates a ModelBuilder.
// If logger is nil, a no-op logger is used.
func NewModelBuilder(
	discoverer datasource.SchemaDiscoverer,
	classifier *Classifier,
	sampling config.SamplingConfig,
	rels config.RelationshipConfig,
	logger *zap.Logger,
) *ModelBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelBuilder{
		discoverer: discoverer,
		classifier: classifier,
		sampling:   sampling,
		rels:       rels,
		logger:     logger.Named("model-builder"),
	}
}

// Build discovers and classifies the database at path. A non-empty
// tableFilter restricts discovery to the named tables.
func (b *ModelBuilder) Build(ctx context.Context, path string, tableFilter []string) (*models.SchemaModel, error) {
	tables, err := b.discoverer.DiscoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}
	tables = filterTables(tables, tableFilter)

	model := models.NewSchemaModel(path)
	for _, tm := range tables {
		desc, err := b.buildTable(ctx, tm)
		if err != nil {
			return nil, err
		}
		if !model.AddTable(desc) {
			return nil, fmt.Errorf("%w: duplicate table %q", apperrors.ErrSchema, tm.TableName)
		}
	}

	if err := b.collectRelationships(ctx, model); err != nil {
		return nil, err
	}
	if err := model.ValidateRelationships(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSchema, err)
	}

	model.Kind = model.DetectDatabaseKind()
	b.logger.Info("schema model built",
		zap.String("path", path),
		zap.String("kind", string(model.Kind)),
		zap.Int("tables", len(model.Tables)),
		zap.Int("relationships", len(model.Relationships)),
		zap.Int("analyzable_columns", model.AnalyzableColumnCount()))
	return model, nil
}

func filterTables(tables []datasource.TableMetadata, filter []string) []datasource.TableMetadata {
	if len(filter) == 0 {
		return tables
	}
	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		wanted[name] = true
	}
	out := tables[:0]
	for _, t := range tables {
		if wanted[t.TableName] {
			out = append(out, t)
		}
	}
	return out
}

func (b *ModelBuilder) buildTable(ctx context.Context, tm datasource.TableMetadata) (*models.TableDescriptor, error) {
	columns, err := b.discoverer.DiscoverColumns(ctx, tm.TableName)
	if err != nil {
		return nil, err
	}

	desc := &models.TableDescriptor{
		Name:     tm.TableName,
		RowCount: tm.RowCount,
	}
	for _, col := range columns {
		sample, err := b.discoverer.SampleColumn(ctx, tm.TableName, col.ColumnName, b.sampling.Cap, b.sampling.Seed)
		if err != nil {
			return nil, fmt.Errorf("sample %s.%s: %w", tm.TableName, col.ColumnName, err)
		}
		cd := b.classifier.Describe(columnMeta{
			Name:         col.ColumnName,
			DeclaredType: col.DeclaredType,
			IsNullable:   col.IsNullable,
			IsPrimaryKey: col.IsPrimaryKey,
		}, sample)
		desc.Columns = append(desc.Columns, cd)
		if col.IsPrimaryKey {
			desc.PrimaryKeys = append(desc.PrimaryKeys, col.ColumnName)
		}
	}
	return desc, nil
}

// collectRelationships gathers declared foreign keys and then infers edges
// between same-named columns across tables where one side is an identifier,
// confirmed by value overlap at or above the configured threshold. Inference
// is best-effort: a candidate below threshold is dropped, not guessed.
func (b *ModelBuilder) collectRelationships(ctx context.Context, model *models.SchemaModel) error {
	declared := make(map[string]bool) // "src.col>dst.col"
	edgeKey := func(s, sc, t, tc string) string { return s + "." + sc + ">" + t + "." + tc }

	for _, tableName := range model.Tables {
		fks, err := b.discoverer.DiscoverForeignKeys(ctx, tableName)
		if err != nil {
			return fmt.Errorf("foreign keys for %s: %w", tableName, err)
		}
		for _, fk := range fks {
			if fk.SourceTable == fk.TargetTable && !isHierarchicalPair(fk.SourceColumn, fk.TargetColumn) {
				continue
			}
			// A declared constraint may point outside the discovery
			// scope; the model invariant forbids dangling edges.
			if model.Table(fk.TargetTable) == nil || model.Table(fk.SourceTable) == nil {
				continue
			}
			rel := models.Relationship{
				Source: models.ColumnRef{Table: fk.SourceTable, Column: fk.SourceColumn},
				Target: models.ColumnRef{Table: fk.TargetTable, Column: fk.TargetColumn},
				Origin: models.RelationshipDeclared,
			}
			if overlap, err := b.discoverer.CheckValueOverlap(ctx, fk.SourceTable, fk.SourceColumn, fk.TargetTable, fk.TargetColumn); err == nil {
				rel.Overlap = overlap.MatchRate
			}
			model.Relationships = append(model.Relationships, rel)
			declared[edgeKey(fk.SourceTable, fk.SourceColumn, fk.TargetTable, fk.TargetColumn)] = true
			declared[edgeKey(fk.TargetTable, fk.TargetColumn, fk.SourceTable, fk.SourceColumn)] = true
		}
	}

	tables := model.TableDescriptors()
	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			for _, src := range tables[i].Columns {
				dst := tables[j].Column(src.Name)
				if dst == nil {
					continue
				}
				if src.Role != models.RoleIdentifier && dst.Role != models.RoleIdentifier {
					continue
				}
				if declared[edgeKey(tables[i].Name, src.Name, tables[j].Name, dst.Name)] {
					continue
				}
				overlap, err := b.discoverer.CheckValueOverlap(ctx, tables[i].Name, src.Name, tables[j].Name, dst.Name)
				if err != nil {
					return fmt.Errorf("value overlap %s.%s vs %s.%s: %w", tables[i].Name, src.Name, tables[j].Name, dst.Name, err)
				}
				if overlap.MatchedCount == 0 || overlap.MatchRate < b.rels.OverlapThreshold {
					b.logger.Debug("relationship candidate below threshold",
						zap.String("source", tables[i].Name+"."+src.Name),
						zap.String("target", tables[j].Name+"."+dst.Name),
						zap.Float64("match_rate", overlap.MatchRate))
					continue
				}
				model.Relationships = append(model.Relationships, models.Relationship{
					Source:  models.ColumnRef{Table: tables[i].Name, Column: src.Name},
					Target:  models.ColumnRef{Table: tables[j].Name, Column: dst.Name},
					Origin:  models.RelationshipInferred,
					Overlap: overlap.MatchRate,
				})
			}
		}
	}
	return nil
}

// isHierarchicalPair reports whether a self-referential edge is an explicit
// parent/child hierarchy (taxonomy trees) rather than a modeling mistake.
func isHierarchicalPair(sourceColumn, targetColumn string) bool {
	s, t := strings.ToLower(sourceColumn), strings.ToLower(targetColumn)
	return strings.Contains(s, "parent") || strings.Contains(t, "parent") ||
		strings.Contains(s, "child") || strings.Contains(t, "child") ||
		strings.Contains(s, "ancestor") || strings.Contains(t, "ancestor")
}
