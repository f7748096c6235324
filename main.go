package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/llm"
	"github.com/biodb-tools/biodb-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `biodb-engine %s

Usage:
  biodb-engine discover <db-file> [-tables t1,t2]
  biodb-engine plan     <db-file> [-tables t1,t2] [-question "..."]
  biodb-engine analyze  <db-file> [-tables t1,t2] [-question "..."]
  biodb-engine ask      <db-file> -question "..." [-tables t1,t2]
  biodb-engine suggest  <db-file> [-tables t1,t2]

All commands print JSON to stdout. ask and suggest require an assistant provider
(ASSISTANT_PROVIDER, ASSISTANT_MODEL, and for hosted providers an API key).
`, Version)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}
	command, dbPath := os.Args[1], os.Args[2]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	tables := flags.String("tables", "", "comma-separated table subset")
	question := flags.String("question", "", "free-text research question")
	if err := flags.Parse(os.Args[3:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := buildLogger(cfg.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := services.SessionOptions{
		Tables:   splitTables(*tables),
		Question: *question,
	}
	switch command {
	case "discover":
		opts.DiscoverOnly = true
	case "plan":
		opts.PlanOnly = true
	case "analyze", "ask", "suggest":
	default:
		usage()
	}

	session := services.NewSession(cfg, nil, logger)
	result, err := session.Run(ctx, dbPath, opts)
	if err != nil {
		logger.Error("analysis failed", zap.String("db", dbPath), zap.Error(err))
		os.Exit(1)
	}

	if command == "ask" || command == "suggest" {
		answer, err := consult(ctx, cfg, logger, result, command, *question)
		if err != nil {
			logger.Error("assistant failed", zap.Error(err))
			os.Exit(1)
		}
		printJSON(answer)
		return
	}
	printJSON(result)
}

func consult(ctx context.Context, cfg *config.Config, logger *zap.Logger, result *services.SessionResult, command, question string) (*llm.Answer, error) {
	if command == "ask" && question == "" {
		return nil, fmt.Errorf("ask requires -question")
	}
	if !cfg.Assistant.IsAvailable() {
		return nil, fmt.Errorf("no assistant provider configured")
	}
	provider, err := llm.NewProvider(cfg.Assistant, logger)
	if err != nil {
		return nil, err
	}
	cache, err := llm.NewResponseCache(cfg.Cache, logger)
	if err != nil {
		logger.Warn("response cache unavailable", zap.Error(err))
		cache = nil
	}
	assistant := llm.NewAssistant(provider, cache, cfg.Assistant, logger)
	if command == "suggest" {
		return assistant.SuggestQuestions(ctx, result.Model, result.Results)
	}
	return assistant.Ask(ctx, result.Model, result.Results, question)
}

func buildLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func splitTables(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
}
