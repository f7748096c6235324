package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

func assistantModel(t *testing.T) *models.SchemaModel {
	t.Helper()
	model := models.NewSchemaModel("/tmp/test.db")
	require.True(t, model.AddTable(&models.TableDescriptor{
		Name:     "contigs",
		RowCount: 100,
		Columns: []models.ColumnDescriptor{
			{Name: "contig_id", DeclaredType: "TEXT", Role: models.RoleIdentifier},
			{Name: "gc_content", DeclaredType: "REAL", Role: models.RoleNumericContinuous},
		},
	}))
	return model
}

func assistantConfig() config.AssistantConfig {
	return config.AssistantConfig{
		Provider:    "ollama",
		Model:       "test-model",
		Temperature: 0.7,
		MaxTokens:   2000,
	}
}

func TestAsk_SendsSchemaInPrompt(t *testing.T) {
	mock := &MockProvider{Response: "The contigs table holds 100 rows."}
	a := NewAssistant(mock, nil, assistantConfig(), nil)

	answer, err := a.Ask(context.Background(), assistantModel(t), nil, "What is in this database?")
	require.NoError(t, err)

	assert.Equal(t, "The contigs table holds 100 rows.", answer.Text)
	assert.False(t, answer.FromCache)
	require.Len(t, mock.Requests, 1)
	assert.Contains(t, mock.Requests[0].Prompt, "Table contigs (100 rows)")
	assert.Contains(t, mock.Requests[0].Prompt, "gc_content REAL [numeric_continuous]")
	assert.Contains(t, mock.Requests[0].Prompt, "Question: What is in this database?")
}

func TestAsk_EmptyQuestionRejected(t *testing.T) {
	a := NewAssistant(&MockProvider{}, nil, assistantConfig(), nil)
	_, err := a.Ask(context.Background(), assistantModel(t), nil, "   ")
	require.Error(t, err)
}

func TestAsk_ProviderErrorPropagates(t *testing.T) {
	mock := &MockProvider{Err: fmt.Errorf("connection refused")}
	a := NewAssistant(mock, nil, assistantConfig(), nil)
	_, err := a.Ask(context.Background(), assistantModel(t), nil, "anything")
	require.ErrorContains(t, err, "connection refused")
}

func TestAsk_CachesResponses(t *testing.T) {
	cache, err := NewResponseCache(config.CacheConfig{Dir: t.TempDir(), MaxSizeMB: 10, MaxAgeSecs: 3600}, nil)
	require.NoError(t, err)

	mock := &MockProvider{Response: "cached answer about contigs"}
	a := NewAssistant(mock, cache, assistantConfig(), nil)
	model := assistantModel(t)

	first, err := a.Ask(context.Background(), model, nil, "How many contigs?")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := a.Ask(context.Background(), model, nil, "How many contigs?")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Text, second.Text)
	assert.Len(t, mock.Requests, 1, "second ask must not hit the provider")
}

func TestAsk_IncludesResultsWhenPresent(t *testing.T) {
	mock := &MockProvider{Response: "ok"}
	a := NewAssistant(mock, nil, assistantConfig(), nil)

	results := []models.ResultRecord{{
		Status: models.StatusSuccess,
		Kind:   models.AnalysisCorrelation,
		Provenance: models.Provenance{
			Table: "contigs",
			Columns: []models.ColumnRef{
				{Table: "contigs", Column: "length"},
				{Table: "contigs", Column: "gc_content"},
			},
		},
		Scalars: []models.ScalarStat{{Name: "r", Value: 0.82}},
	}}
	_, err := a.Ask(context.Background(), assistantModel(t), results, "Is length correlated with gc?")
	require.NoError(t, err)

	prompt := mock.Requests[0].Prompt
	assert.Contains(t, prompt, "Analysis results:")
	assert.Contains(t, prompt, "correlation on contigs(length, gc_content)")
	assert.Contains(t, prompt, "r=0.82")
}

func TestSuggestQuestions_PromptAsksForProposals(t *testing.T) {
	mock := &MockProvider{Response: "1. How does gc_content vary across contigs?"}
	a := NewAssistant(mock, nil, assistantConfig(), nil)

	answer, err := a.SuggestQuestions(context.Background(), assistantModel(t), nil)
	require.NoError(t, err)

	assert.Greater(t, answer.SchemaConfidence, 0.0)
	require.Len(t, mock.Requests, 1)
	assert.Contains(t, mock.Requests[0].Prompt, "Table contigs (100 rows)")
	assert.Contains(t, mock.Requests[0].Prompt, "Propose up to five research questions")
	assert.NotContains(t, mock.Requests[0].Prompt, "Question:")
}

func TestSchemaConfidence(t *testing.T) {
	model := assistantModel(t)

	grounded := "The contigs table has a gc_content column with a contig_id key."
	assert.Greater(t, schemaConfidence(grounded, model), 0.5)

	generic := "Databases generally contain tables with rows and columns."
	assert.Equal(t, 0.0, schemaConfidence(generic, model))
}
