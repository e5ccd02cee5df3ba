package config

import "time"

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout = 30 * time.Second
	SchemaInitTimeout   = 2 * time.Minute
	NetworkDialTimeout  = 5 * time.Second

	// Ledger writes
	PersistAttempts     = 3
	PersistRetryBackoff = 500 * time.Millisecond
	SummaryMergeRetries = 5

	// Funding
	FundedAddressCacheSize = 100000
	WeiDecimals            = 18

	// Singleton keys
	PopulationSummaryID = "population"
	DefaultPoolID       = "main"
)

// Activity log kinds
const (
	ActivityRunStarted      = "run_started"
	ActivityBatchCompleted  = "batch_completed"
	ActivityRunCompleted    = "run_completed"
	ActivityPoolInitialized = "pool_initialized"
	ActivityIntegrityWarn   = "integrity_warning"
)
