// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// ClaimReceipt records the outcome of a previously processed claim request,
// keyed by (product_id, key). Guests retrying a claim POST with the same
// Idempotency-Key get the originally produced result back instead of a
// spurious "already claimed" error. ClaimerEmail pins the receipt to the
// guest who made the original claim: keys are client-chosen tokens, so a
// receipt must never replay one guest's claim (and unclaim credential) to
// another guest who happens to present the same key.
type ClaimReceipt struct {
	ID           string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ProductID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_product_key,priority:1"`
	Key          string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_product_key,priority:2"`
	ClaimerEmail string    `gorm:"type:TEXT NOT NULL;default:''"`
	Status       int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt    time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt    time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ClaimReceipt) TableName() string { return "claim_receipts" }
