package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
	"github.com/biodb-tools/biodb-engine/pkg/retry"
)

// Answer is one assistant response with its grounding estimate.
type Answer struct {
	Text string `json:"text"`

	// SchemaConfidence estimates how grounded the answer is in the actual
	// schema: the share of distinct table and column names the answer
	// mentions, saturating at five references. Low confidence suggests the
	// model answered from general knowledge rather than this database.
	SchemaConfidence float64 `json:"schema_confidence"`

	FromCache bool `json:"from_cache"`
}

// Assistant answers research questions about an analyzed database. The
// assistant is additive: every other part of the engine works without it, and
// a missing provider configuration disables it rather than failing a run.
type Assistant struct {
	provider Provider
	cache    *ResponseCache
	cfg      config.AssistantConfig
	logger   *zap.Logger
}

// NewAssistant creates an Assistant. cache may be nil to disable caching.
func NewAssistant(provider Provider, cache *ResponseCache, cfg config.AssistantConfig, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{provider: provider, cache: cache, cfg: cfg, logger: logger.Named("assistant")}
}

// Ask answers a question about the schema and (optionally) executed results.
func (a *Assistant) Ask(ctx context.Context, model *models.SchemaModel, results []models.ResultRecord, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	return a.complete(ctx, model, questionPrompt(model, results, question))
}

// SuggestQuestions asks the assistant to propose research questions the
// analyzed database can support, grounded in its tables and columns.
func (a *Assistant) SuggestQuestions(ctx context.Context, model *models.SchemaModel, results []models.ResultRecord) (*Answer, error) {
	return a.complete(ctx, model, suggestionsPrompt(model, results))
}

func (a *Assistant) complete(ctx context.Context, model *models.SchemaModel, prompt string) (*Answer, error) {
	var key string
	if a.cache != nil {
		key = a.cache.Key(model.Fingerprint(), a.cfg.Model, prompt)
		if cached, ok := a.cache.Get(key); ok {
			a.logger.Debug("cache hit", zap.String("key", key[:12]))
			return &Answer{
				Text:             cached,
				SchemaConfidence: schemaConfidence(cached, model),
				FromCache:        true,
			}, nil
		}
	}

	var result *CompletionResult
	err := retry.Do(ctx, nil, func() error {
		var completeErr error
		result, completeErr = a.provider.Complete(ctx, CompletionRequest{
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		})
		return completeErr
	})
	if err != nil {
		return nil, fmt.Errorf("assistant completion: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Put(key, a.cfg.Model, result.Content); err != nil {
			a.logger.Warn("failed to cache response", zap.Error(err))
		}
	}
	return &Answer{
		Text:             result.Content,
		SchemaConfidence: schemaConfidence(result.Content, model),
	}, nil
}

// schemaConfidence counts distinct schema identifiers (table and column
// names) mentioned in the answer. Five or more distinct references score 1.0.
func schemaConfidence(answer string, model *models.SchemaModel) float64 {
	lower := strings.ToLower(answer)
	referenced := 0
	for _, t := range model.TableDescriptors() {
		if strings.Contains(lower, strings.ToLower(t.Name)) {
			referenced++
		}
		for _, c := range t.Columns {
			// short names like "id" match everywhere and say nothing
			if len(c.Name) >= 3 && strings.Contains(lower, strings.ToLower(c.Name)) {
				referenced++
			}
		}
	}
	const saturation = 5
	if referenced >= saturation {
		return 1.0
	}
	return float64(referenced) / saturation
}
