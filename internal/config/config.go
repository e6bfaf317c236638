// Package config defines preflight's top-level configuration struct and
// validation, following codefang's viper/mapstructure-driven config layer.
package config

import "errors"

// AnalysisMode is the analysis_mode configuration value. No component reads
// it; bundle construction runs no analyzers.
type AnalysisMode string

// Recognized analysis modes.
const (
	AnalysisModeFull    AnalysisMode = "full"
	AnalysisModeMinimal AnalysisMode = "minimal"
	AnalysisModeOff     AnalysisMode = "off"
)

// ASTEngine selects the import-extraction strategy for the dependency graph
// engine. Only "wasm" (the exact, line-anchored path) is recognized; anything
// else forces the heuristic regex fallback, per spec §6.
const (
	ASTEngineWASM = "wasm"
)

// Config is the top-level configuration struct for preflight.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	StorageDirs          []string     `mapstructure:"storage_dirs"`
	TmpDir               string       `mapstructure:"tmp_dir"`
	MaxFileBytes         int64        `mapstructure:"max_file_bytes"`
	MaxTotalBytes        int64        `mapstructure:"max_total_bytes"`
	GitCloneTimeoutMs    int          `mapstructure:"git_clone_timeout_ms"`
	ASTEngine            string       `mapstructure:"ast_engine"`
	AnalysisMode         AnalysisMode `mapstructure:"analysis_mode"`
	BundleCreationLimit  int          `mapstructure:"bundle_creation_limiter"`
	GraphDefaultBudgets  GraphBudgets `mapstructure:"graph_budgets"`
}

// GraphBudgets holds the default dependency-graph engine limits (spec §4.I).
type GraphBudgets struct {
	MaxFiles      int `mapstructure:"max_files"`
	MaxNodes      int `mapstructure:"max_nodes"`
	MaxEdges      int `mapstructure:"max_edges"`
	TimeBudgetMs  int `mapstructure:"time_budget_ms"`
}

// Sentinel validation errors.
var (
	ErrNoStorageDirs       = errors.New("config: storage_dirs must contain at least one path")
	ErrInvalidMaxFileBytes = errors.New("config: max_file_bytes must be positive")
	ErrInvalidMaxTotal     = errors.New("config: max_total_bytes must be >= max_file_bytes")
	ErrInvalidCloneTimeout = errors.New("config: git_clone_timeout_ms must be positive")
	ErrInvalidLimiter      = errors.New("config: bundle_creation_limiter must be positive")
	ErrInvalidGraphBudgets = errors.New("config: graph_budgets fields must be positive")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if len(c.StorageDirs) == 0 {
		return ErrNoStorageDirs
	}

	if c.MaxFileBytes <= 0 {
		return ErrInvalidMaxFileBytes
	}

	if c.MaxTotalBytes < c.MaxFileBytes {
		return ErrInvalidMaxTotal
	}

	if c.GitCloneTimeoutMs <= 0 {
		return ErrInvalidCloneTimeout
	}

	if c.BundleCreationLimit <= 0 {
		return ErrInvalidLimiter
	}

	if c.GraphDefaultBudgets.MaxFiles <= 0 || c.GraphDefaultBudgets.MaxNodes <= 0 ||
		c.GraphDefaultBudgets.MaxEdges <= 0 || c.GraphDefaultBudgets.TimeBudgetMs <= 0 {
		return ErrInvalidGraphBudgets
	}

	return nil
}

// UsesExactImportExtraction reports whether the configured AST engine uses
// the exact, line-anchored import path rather than the heuristic fallback.
func (c *Config) UsesExactImportExtraction() bool {
	return c.ASTEngine == ASTEngineWASM
}
