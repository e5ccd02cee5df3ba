package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	FundingStatusConfirmed = "confirmed"
	FundingStatusFailed    = "failed"
)

// FundingTransaction is the log entry written for every funding attempt,
// successful or not. Failed attempts carry a synthetic reference.
type FundingTransaction struct {
	bun.BaseModel `bun:"table:funding_transactions,alias:ft"`

	ID          int64           `bun:"id,pk,autoincrement"`
	Reference   string          `bun:"reference,notnull,unique"`
	AgentID     string          `bun:"agent_id,notnull,type:uuid"`
	RunID       string          `bun:"run_id,notnull"`
	FromAddress string          `bun:"from_address,notnull"`
	ToAddress   string          `bun:"to_address,notnull"`
	Amount      decimal.Decimal `bun:"amount,type:numeric,notnull"`
	Status      string          `bun:"status,notnull"`
	Reason      string          `bun:"reason"`
	SubmittedTx string          `bun:"submitted_tx"`
	BlockNumber int64           `bun:"block_number,nullzero"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}
