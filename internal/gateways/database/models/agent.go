package models

import (
	"time"

	"github.com/agentmarket/popsim/internal/domain/archetypes"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Agent is one simulated trader. Rows are written once at creation and
// never updated or deleted by the pipeline.
type Agent struct {
	bun.BaseModel `bun:"table:agents,alias:a"`

	ID             string              `bun:"id,pk,type:uuid"`
	RunID          string              `bun:"run_id,notnull"`
	Name           string              `bun:"name,notnull"`
	Archetype      string              `bun:"archetype,notnull"`
	Occupation     string              `bun:"occupation,notnull"`
	WalletAddress  string              `bun:"wallet_address,notnull,unique"`
	WalletSecret   string              `bun:"wallet_secret,notnull"`
	TargetFunding  decimal.Decimal     `bun:"target_funding,type:numeric,notnull"`
	ActualFunding  decimal.Decimal     `bun:"actual_funding,type:numeric,notnull"`
	WalletBalance  decimal.Decimal     `bun:"wallet_balance,type:numeric,notnull"`
	FundingSuccess bool                `bun:"funding_success,notnull"`
	FundingReceipt *string             `bun:"funding_receipt"`
	FundingReason  string              `bun:"funding_reason"`
	Behavior       archetypes.Behavior `bun:"behavior,type:jsonb,notnull"`
	InitialState   AgentState          `bun:"initial_state,type:jsonb,notnull"`
	CreatedAt      time.Time           `bun:"created_at,notnull,default:current_timestamp"`
}

// AgentState is the snapshot an agent starts trading from.
type AgentState struct {
	NativeBalance decimal.Decimal `json:"native_balance"`
	TokenBalance  decimal.Decimal `json:"token_balance"`
	Sentiment     string          `json:"sentiment"`
	TradeCount    int             `json:"trade_count"`
	Active        bool            `json:"active"`
}
