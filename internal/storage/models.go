// internal/storage/models.go
package storage

import "time"

// Settlement is one confirmed ledger operation: an initialize, buy, sell or
// withdraw that the transport confirmed and the ledger committed.
type Settlement struct {
	ID            uint      `gorm:"primarykey"`
	CreatedAt     time.Time `gorm:"index"`
	Signature     string    `gorm:"uniqueIndex;size:128"`
	Owner         string    `gorm:"index;size:64"`
	Kind          string    `gorm:"size:16"`
	Counterparty  string    `gorm:"size:64"`
	Referrer      string    `gorm:"size:64"`
	Lamports      uint64
	Commission    uint64
	Tokens        uint64
	TokensSold    uint64
	EscrowBalance uint64
}

// AccessGrant records a confirmed pay-per-access payment.
type AccessGrant struct {
	ID         uint      `gorm:"primarykey"`
	CreatedAt  time.Time `gorm:"index"`
	ResourceID string    `gorm:"index;size:128"`
	Owner      string    `gorm:"size:64"`
	Payer      string    `gorm:"size:64"`
	Lamports   uint64
	Signature  string `gorm:"size:128"`
}

// IcoStateRecord snapshots the ledger state between CLI invocations. The
// Address column holds the program-derived account address recomputed from
// (program, owner), so any party can locate the row from public inputs.
type IcoStateRecord struct {
	Owner         string `gorm:"primarykey;size:64"`
	Address       string `gorm:"uniqueIndex;size:64"`
	TokenMint     string `gorm:"size:64"`
	CurveKind     string `gorm:"size:16"`
	BasePrice     string `gorm:"size:40"`
	ScalingFactor string `gorm:"size:40"`
	SupplyCap     uint64
	TokensSold    uint64
	EscrowBalance uint64
	UpdatedAt     time.Time
}

// ResourceStateRecord persists a resource record at its derived address.
type ResourceStateRecord struct {
	Owner      string `gorm:"primarykey;size:64"`
	ResourceID string `gorm:"primarykey;size:128"`
	Address    string `gorm:"uniqueIndex;size:64"`
	AccessFee  uint64
	UpdatedAt  time.Time
}
