package models

import (
	"encoding/json"
	"time"
)

// Invocation status values
const (
	StatusOK       = "ok"
	StatusFallback = "fallback"
	StatusError    = "error"
)

// Invocation represents the invocations table: one row per gateway run.
// RequestID is caller supplied and not unique, since retries reuse it.
type Invocation struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID  string          `gorm:"not null;index" json:"request_id"`
	Payload    string          `gorm:"not null" json:"payload" gocrypt:"aes"` // Encrypted configuration payload
	Status     string          `gorm:"not null;index" json:"status"`
	Record     json.RawMessage `gorm:"type:jsonb" json:"record,omitempty"`
	Error      string          `json:"error,omitempty"`
	ExitCode   int             `json:"exit_code"`
	DurationMs int64           `json:"duration_ms"`
	CreatedAt  time.Time       `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName overrides the default table name logic
func (Invocation) TableName() string { return "invocations" }

// GetID satisfies the Identifiable interface
func (i Invocation) GetID() int64 { return i.ID }
