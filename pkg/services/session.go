package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/adapters/datasource/sqlite"
	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// SessionOptions adjusts one analysis run.
type SessionOptions struct {
	// Tables restricts discovery to the named tables when non-empty.
	Tables []string
	// Question is an optional free-text research question used to bias the
	// plan toward relevant tables and columns.
	Question string
	// DiscoverOnly stops after the schema model is built.
	DiscoverOnly bool
	// PlanOnly stops after planning, without executing any step.
	PlanOnly bool
}

// SessionResult is the full output of one analysis run.
type SessionResult struct {
	Model   *models.SchemaModel   `json:"model"`
	Plan    *models.AnalysisPlan  `json:"plan,omitempty"`
	Results []models.ResultRecord `json:"results,omitempty"`
}

// Session runs the discover-classify-plan-execute pipeline against one
// database file. Each run opens its own read-only connection, so sessions are
// safe to run concurrently against the same file.
type Session struct {
	cfg     *config.Config
	catalog *Catalog
	logger  *zap.Logger
}

// NewSession creates a Session. A nil catalog gets the default template set.
func NewSession(cfg *config.Config, catalog *Catalog, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Session{cfg: cfg, catalog: catalog, logger: logger.Named("session")}
}

// Run executes a full analysis of the database at path.
func (s *Session) Run(ctx context.Context, path string, opts SessionOptions) (*SessionResult, error) {
	disc, err := sqlite.Open(path, s.logger)
	if err != nil {
		return nil, err
	}
	defer disc.Close()

	classifier := NewClassifier(s.cfg.Classifier, s.logger)
	builder := NewModelBuilder(disc, classifier, s.cfg.Sampling, s.cfg.Relationships, s.logger)
	model, err := builder.Build(ctx, path, opts.Tables)
	if err != nil {
		return nil, fmt.Errorf("build schema model: %w", err)
	}
	if opts.DiscoverOnly {
		return &SessionResult{Model: model}, nil
	}

	planner := NewPlanner(s.catalog, s.logger)
	plan, err := planner.Plan(model, opts.Question)
	if err != nil {
		return nil, err
	}
	if opts.PlanOnly {
		return &SessionResult{Model: model, Plan: plan}, nil
	}

	executor := NewExecutor(disc, s.cfg.Execution, s.logger)
	results, err := executor.Execute(ctx, model, plan)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Model: model, Plan: plan, Results: results}, nil
}
