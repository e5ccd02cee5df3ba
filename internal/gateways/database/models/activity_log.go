package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs,alias:al"`

	ID        int64          `bun:"id,pk,autoincrement" json:"id,omitempty" bson:"-"`
	RunID     string         `bun:"run_id" json:"run_id" bson:"run_id"`
	Kind      string         `bun:"kind,notnull" json:"kind" bson:"kind"`
	Message   string         `bun:"message,notnull" json:"message" bson:"message"`
	Details   map[string]any `bun:"details,type:jsonb" json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt time.Time      `bun:"created_at,notnull,default:current_timestamp" json:"created_at" bson:"created_at"`
}
