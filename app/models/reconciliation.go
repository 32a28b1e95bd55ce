package models

import "time"

// ReconciliationStatus tracks a charge that never became an order.
type ReconciliationStatus string

const (
	// ReconReversed: the charge was voided or refunded automatically.
	ReconReversed ReconciliationStatus = "reversed"
	// ReconPending: the reversal failed too; an operator must act.
	ReconPending ReconciliationStatus = "pending"
	// ReconResolved: closed by an operator.
	ReconResolved ReconciliationStatus = "resolved"
)

// Reconciliation lives in the SQL ledger, apart from the document store whose
// failure it records.
type Reconciliation struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	TransactionID string               `gorm:"size:64;not null;index" json:"transaction_id"`
	ReversalID    string               `gorm:"size:64" json:"reversal_id,omitempty"`
	BuyerID       string               `gorm:"size:24;index" json:"buyer_id"`
	Amount        int64                `gorm:"not null" json:"amount"` // minor units
	Currency      string               `gorm:"size:3" json:"currency"`
	Reason        string               `gorm:"type:text" json:"reason"`
	Status        ReconciliationStatus `gorm:"size:16;not null;index" json:"status"`
	Payload       string               `gorm:"type:text" json:"payload"` // JSON of the unsaved order
	Note          string               `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}

func (Reconciliation) TableName() string { return "reconciliations" }
