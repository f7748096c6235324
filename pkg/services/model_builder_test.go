package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodb-tools/biodb-engine/pkg/adapters/datasource"
	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// fakeDiscoverer is an in-memory datasource.SchemaDiscoverer.
type fakeDiscoverer struct {
	tables   []datasource.TableMetadata
	columns  map[string][]datasource.ColumnMetadata
	fks      map[string][]datasource.ForeignKeyMetadata
	samples  map[string][]models.Value               // "table.column"
	overlaps map[string]*datasource.ValueOverlapResult // "t1.c1>t2.c2"
}

func (f *fakeDiscoverer) DiscoverTables(context.Context) ([]datasource.TableMetadata, error) {
	return f.tables, nil
}

func (f *fakeDiscoverer) DiscoverColumns(_ context.Context, table string) ([]datasource.ColumnMetadata, error) {
	return f.columns[table], nil
}

func (f *fakeDiscoverer) DiscoverForeignKeys(_ context.Context, table string) ([]datasource.ForeignKeyMetadata, error) {
	return f.fks[table], nil
}

func (f *fakeDiscoverer) SampleColumn(_ context.Context, table, column string, _ int, _ int64) ([]models.Value, error) {
	return f.samples[table+"."+column], nil
}

func (f *fakeDiscoverer) CheckValueOverlap(_ context.Context, st, sc, tt, tc string) (*datasource.ValueOverlapResult, error) {
	if r, ok := f.overlaps[st+"."+sc+">"+tt+"."+tc]; ok {
		return r, nil
	}
	if r, ok := f.overlaps[tt+"."+tc+">"+st+"."+sc]; ok {
		return r, nil
	}
	return &datasource.ValueOverlapResult{}, nil
}

func (f *fakeDiscoverer) Close() error { return nil }

func builderConfig() (config.SamplingConfig, config.RelationshipConfig) {
	return config.SamplingConfig{Cap: 1000, Seed: 42},
		config.RelationshipConfig{OverlapThreshold: 0.8}
}

func twoTableDiscoverer() *fakeDiscoverer {
	return &fakeDiscoverer{
		tables: []datasource.TableMetadata{
			{TableName: "contigs", RowCount: 3},
			{TableName: "genes", RowCount: 3},
		},
		columns: map[string][]datasource.ColumnMetadata{
			"contigs": {
				{ColumnName: "contig_id", DeclaredType: "TEXT", IsPrimaryKey: true},
				{ColumnName: "length", DeclaredType: "INTEGER"},
			},
			"genes": {
				{ColumnName: "gene_id", DeclaredType: "INTEGER", IsPrimaryKey: true},
				{ColumnName: "contig_id", DeclaredType: "TEXT"},
			},
		},
		samples: map[string][]models.Value{
			"contigs.contig_id": {models.TextValue("contig_001"), models.TextValue("contig_002"), models.TextValue("contig_003")},
			"contigs.length":    {models.IntValue(1000), models.IntValue(2500), models.IntValue(800)},
			"genes.gene_id":     {models.IntValue(1), models.IntValue(2), models.IntValue(3)},
			"genes.contig_id":   {models.TextValue("contig_001"), models.TextValue("contig_001"), models.TextValue("contig_002")},
		},
		overlaps: map[string]*datasource.ValueOverlapResult{
			"contigs.contig_id>genes.contig_id": {
				SourceDistinct: 3, TargetDistinct: 2, MatchedCount: 2, MatchRate: 1.0,
			},
		},
	}
}

func TestBuild_AssemblesTablesAndRoles(t *testing.T) {
	sampling, rels := builderConfig()
	b := NewModelBuilder(twoTableDiscoverer(), testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/test.db", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"contigs", "genes"}, model.Tables)
	contigs := model.Table("contigs")
	require.NotNil(t, contigs)
	assert.Equal(t, models.RoleIdentifier, contigs.Column("contig_id").Role)
	assert.Equal(t, []string{"contig_id"}, contigs.PrimaryKeys)
	require.NoError(t, model.ValidateRelationships())
}

func TestBuild_InfersRelationshipAtFullOverlap(t *testing.T) {
	sampling, rels := builderConfig()
	b := NewModelBuilder(twoTableDiscoverer(), testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/test.db", nil)
	require.NoError(t, err)

	require.Len(t, model.Relationships, 1)
	rel := model.Relationships[0]
	assert.Equal(t, models.RelationshipInferred, rel.Origin)
	assert.Equal(t, "contig_id", rel.Source.Column)
	assert.Equal(t, "contig_id", rel.Target.Column)
	assert.Equal(t, 1.0, rel.Overlap)
}

func TestBuild_NoRelationshipAtZeroOverlap(t *testing.T) {
	disc := twoTableDiscoverer()
	disc.overlaps = map[string]*datasource.ValueOverlapResult{} // no shared values
	sampling, rels := builderConfig()
	b := NewModelBuilder(disc, testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/test.db", nil)
	require.NoError(t, err)
	assert.Empty(t, model.Relationships)
}

func TestBuild_BelowThresholdDropped(t *testing.T) {
	disc := twoTableDiscoverer()
	disc.overlaps["contigs.contig_id>genes.contig_id"] = &datasource.ValueOverlapResult{
		SourceDistinct: 3, TargetDistinct: 2, MatchedCount: 1, MatchRate: 0.5,
	}
	sampling, rels := builderConfig()
	b := NewModelBuilder(disc, testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/test.db", nil)
	require.NoError(t, err)
	assert.Empty(t, model.Relationships)
}

func TestBuild_DeclaredForeignKeysAlwaysKept(t *testing.T) {
	disc := twoTableDiscoverer()
	disc.fks = map[string][]datasource.ForeignKeyMetadata{
		"genes": {{
			SourceTable: "genes", SourceColumn: "contig_id",
			TargetTable: "contigs", TargetColumn: "contig_id",
		}},
	}
	// low overlap must not drop a declared constraint
	disc.overlaps["contigs.contig_id>genes.contig_id"] = &datasource.ValueOverlapResult{MatchRate: 0.1}
	sampling, rels := builderConfig()
	b := NewModelBuilder(disc, testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/test.db", nil)
	require.NoError(t, err)

	require.Len(t, model.Relationships, 1)
	assert.Equal(t, models.RelationshipDeclared, model.Relationships[0].Origin)
}

func TestBuild_TableFilterRestrictsDiscovery(t *testing.T) {
	sampling, rels := builderConfig()
	b := NewModelBuilder(twoTableDiscoverer(), testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/test.db", []string{"contigs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"contigs"}, model.Tables)
	assert.Empty(t, model.Relationships)
}

func TestBuild_DetectsBioinformaticsKind(t *testing.T) {
	sampling, rels := builderConfig()
	b := NewModelBuilder(twoTableDiscoverer(), testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/test.db", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DatabaseKindBioinformatics, model.Kind)
}

func TestBuild_SelfReferenceOnlyWhenHierarchical(t *testing.T) {
	disc := &fakeDiscoverer{
		tables: []datasource.TableMetadata{{TableName: "taxonomy", RowCount: 5}},
		columns: map[string][]datasource.ColumnMetadata{
			"taxonomy": {
				{ColumnName: "taxon_id", DeclaredType: "INTEGER", IsPrimaryKey: true},
				{ColumnName: "parent_taxon_id", DeclaredType: "INTEGER"},
			},
		},
		samples: map[string][]models.Value{
			"taxonomy.taxon_id":        intSample(1, 2, 3, 4, 5),
			"taxonomy.parent_taxon_id": intSample(0, 1, 1, 2, 2),
		},
		fks: map[string][]datasource.ForeignKeyMetadata{
			"taxonomy": {{
				SourceTable: "taxonomy", SourceColumn: "parent_taxon_id",
				TargetTable: "taxonomy", TargetColumn: "taxon_id",
			}},
		},
	}
	sampling, rels := builderConfig()
	b := NewModelBuilder(disc, testClassifier(), sampling, rels, nil)

	model, err := b.Build(context.Background(), "/tmp/tax.db", nil)
	require.NoError(t, err)
	require.Len(t, model.Relationships, 1)
	assert.Equal(t, "parent_taxon_id", model.Relationships[0].Source.Column)
}
